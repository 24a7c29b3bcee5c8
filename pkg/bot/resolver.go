package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/City-Bureau/intakechat/pkg/chat"
	"github.com/City-Bureau/intakechat/pkg/store"
)

// Resolver maps a sender to its single open conversation
type Resolver struct {
	store  store.Store
	logger *slog.Logger
}

// NewResolver is a constructor for Resolver structs
func NewResolver(s store.Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: s, logger: loggerOrDefault(logger)}
}

// Resolve returns the open conversation for the event's sender, creating
// the contact and conversation on first contact. It never closes or
// reopens conversations.
func (r *Resolver) Resolve(ctx context.Context, event chat.InboundEvent) (*chat.Conversation, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	contact, err := r.store.GetOrCreateContact(ctx, event.SenderID)
	if err != nil {
		return nil, fmt.Errorf("resolve contact: %w", err)
	}

	name := strings.TrimSpace(event.SenderName)
	if name != "" && name != contact.DisplayName() {
		if err := r.store.UpdateContactName(ctx, contact, name); err != nil {
			return nil, fmt.Errorf("enrich contact name: %w", err)
		}
	}

	conversation, err := r.store.GetOrCreateOpenConversation(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}
	r.logger.Debug("resolved conversation", "sender", contact.Identifier, "conversation_id", conversation.ID)
	return conversation, nil
}
