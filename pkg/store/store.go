package store

import (
	"context"
	"time"

	"github.com/City-Bureau/intakechat/pkg/chat"
)

// DialogueFunc inspects and mutates a locked DialogueContext. Returning
// false skips the write entirely.
type DialogueFunc func(dc *chat.DialogueContext) (bool, error)

// Store is the durable record of contacts, conversations and messages
type Store interface {
	// GetOrCreateContact atomically returns the contact for an identifier
	GetOrCreateContact(ctx context.Context, identifier string) (*chat.Contact, error)
	// UpdateContactName stores the display name supplied by the channel
	UpdateContactName(ctx context.Context, contact *chat.Contact, name string) error

	// GetOrCreateOpenConversation atomically returns the single open
	// conversation for a contact
	GetOrCreateOpenConversation(ctx context.Context, contact *chat.Contact) (*chat.Conversation, error)
	// FindOpenConversation returns chat.ErrNotFound when the identifier has
	// no open conversation
	FindOpenConversation(ctx context.Context, identifier string) (*chat.Conversation, error)
	CloseConversation(ctx context.Context, conversation *chat.Conversation, at time.Time) error
	// CloseInactiveConversations closes open conversations with no messages
	// since idleSince and returns how many were closed
	CloseInactiveConversations(ctx context.Context, idleSince, at time.Time) (int64, error)

	MessageExists(ctx context.Context, providerMessageID string) (bool, error)
	// AppendMessage inserts a message, returning chat.ErrDuplicateMessage
	// when its provider id is already stored
	AppendMessage(ctx context.Context, message *chat.Message) error
	ListMessages(ctx context.Context, conversationID uint) ([]chat.Message, error)

	// UpdateDialogue runs a serialized read-modify-write on the context of a
	// conversation, creating it if needed. A non-nil inbound message is
	// stored in the same unit of work, so it only exists once the cycle has
	// committed; chat.ErrDuplicateMessage means its provider id is taken.
	// Returns chat.ErrConcurrentUpdate when another writer got there first.
	UpdateDialogue(ctx context.Context, conversationID uint, inbound *chat.Message, fn DialogueFunc) error
}
