package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// DeliveryChannelMock is a mock for bot.DeliveryChannel
type DeliveryChannelMock struct {
	mock.Mock
}

// Deliver mocks delivering a reply
func (m *DeliveryChannelMock) Deliver(ctx context.Context, destination, text string) (string, error) {
	args := m.Called(destination, text)
	return args.String(0), args.Error(1)
}
