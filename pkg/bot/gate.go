package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/City-Bureau/intakechat/pkg/chat"
	"github.com/City-Bureau/intakechat/pkg/store"
)

// Gate keeps redelivered webhook events away from the state machine
type Gate struct {
	store  store.Store
	seen   SeenCache
	logger *slog.Logger
}

// NewGate is a constructor for Gate structs, seen may be nil
func NewGate(s store.Store, seen SeenCache, logger *slog.Logger) *Gate {
	return &Gate{store: s, seen: seen, logger: loggerOrDefault(logger)}
}

// Check returns chat.ErrDuplicateInbound when the event's provider id has
// already been ingested. Events without a provider id always pass.
func (g *Gate) Check(ctx context.Context, event chat.InboundEvent) error {
	if !event.HasProviderID() {
		return nil
	}
	if g.seen != nil {
		seen, err := g.seen.Seen(ctx, event.ProviderMessageID)
		if err != nil {
			g.logger.Warn("seen cache lookup failed", "provider_message_id", event.ProviderMessageID, "error", err)
		} else if seen {
			return chat.ErrDuplicateInbound
		}
	}
	exists, err := g.store.MessageExists(ctx, event.ProviderMessageID)
	if err != nil {
		return fmt.Errorf("check inbound message: %w", err)
	}
	if exists {
		return chat.ErrDuplicateInbound
	}
	return nil
}

// Inbound builds the row for an accepted event. It is written together
// with the dialogue update, where the uniqueness constraint on provider ids
// settles races between deliveries that both passed Check.
func (g *Gate) Inbound(conversation *chat.Conversation, event chat.InboundEvent) *chat.Message {
	message := &chat.Message{
		ConversationID: conversation.ID,
		Direction:      chat.Inbound,
		Sender:         chat.SenderUser,
		Body:           event.Text,
	}
	if event.HasProviderID() {
		providerID := event.ProviderMessageID
		message.ProviderMessageID = &providerID
	}
	return message
}

// Remember marks a committed inbound message in the seen cache
func (g *Gate) Remember(ctx context.Context, message *chat.Message) {
	if g.seen == nil || message.ProviderMessageID == nil {
		return
	}
	if err := g.seen.MarkSeen(ctx, *message.ProviderMessageID); err != nil {
		g.logger.Warn("seen cache update failed", "provider_message_id", *message.ProviderMessageID, "error", err)
	}
}
