package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/City-Bureau/intakechat/pkg/chat"
	"github.com/City-Bureau/intakechat/pkg/store"
)

// Dispatcher delivers replies and records them as outbound messages
type Dispatcher struct {
	channel DeliveryChannel
	store   store.Store
	logger  *slog.Logger
}

// NewDispatcher is a constructor for Dispatcher structs
func NewDispatcher(channel DeliveryChannel, s store.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{channel: channel, store: s, logger: loggerOrDefault(logger)}
}

// Send delivers text to the conversation's contact and records it whether
// or not delivery succeeded. Delivery failures are logged, only storage
// failures are returned.
func (d *Dispatcher) Send(ctx context.Context, conversation *chat.Conversation, role chat.SenderRole, text string) (*chat.Message, error) {
	message := &chat.Message{
		ConversationID: conversation.ID,
		Direction:      chat.Outbound,
		Sender:         role,
		Body:           text,
	}

	token, err := d.channel.Deliver(ctx, conversation.Destination(), text)
	if err != nil {
		d.logger.Error("delivery failed",
			"conversation_id", conversation.ID,
			"sender", conversation.Destination(),
			"error", err,
		)
	} else {
		d.logger.Debug("reply delivered", "conversation_id", conversation.ID, "token", token)
	}

	if err := d.store.AppendMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("record outbound message: %w", err)
	}
	return message, nil
}
