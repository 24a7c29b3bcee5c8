package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// SNSMock is a mock for svc.SNS
type SNSMock struct {
	mock.Mock
}

// Publish mocks publishing to a feed
func (m *SNSMock) Publish(ctx context.Context, message, topicArn, feed string) error {
	return m.Called(message, topicArn, feed).Error(0)
}
