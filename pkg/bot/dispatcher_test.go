package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-Bureau/intakechat/pkg/chat"
	"github.com/City-Bureau/intakechat/pkg/mocks"
	"github.com/City-Bureau/intakechat/pkg/store"
)

func TestDispatcherRecordsRegardlessOfDelivery(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	contact, _ := s.GetOrCreateContact(ctx, sender)
	conversation, _ := s.GetOrCreateOpenConversation(ctx, contact)

	channel := &mocks.DeliveryChannelMock{}
	channel.On("Deliver", sender, "first").Return("wamid.1", nil)
	channel.On("Deliver", sender, "second").Return("", errors.New("token expired"))
	dispatcher := NewDispatcher(channel, s, nil)

	_, err := dispatcher.Send(ctx, conversation, chat.SenderBot, "first")
	require.NoError(t, err)
	_, err = dispatcher.Send(ctx, conversation, chat.SenderBot, "second")
	require.NoError(t, err)

	messages, _ := s.ListMessages(ctx, conversation.ID)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Body)
	assert.Equal(t, "second", messages[1].Body)
	for _, message := range messages {
		assert.Equal(t, chat.Outbound, message.Direction)
		assert.Nil(t, message.ProviderMessageID)
	}
	channel.AssertExpectations(t)
}
