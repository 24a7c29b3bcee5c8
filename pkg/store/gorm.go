package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/lib/pq"

	"github.com/City-Bureau/intakechat/pkg/chat"
)

const (
	insertContactSQL = `INSERT INTO contacts (identifier, created_at) VALUES (?, ?)
		ON CONFLICT (identifier) DO NOTHING`
	insertConversationSQL = `INSERT INTO conversations (contact_id, is_open, started_at) VALUES (?, TRUE, ?)
		ON CONFLICT (contact_id) WHERE is_open DO NOTHING`
	insertDialogueSQL = `INSERT INTO dialogue_contexts (conversation_id, state, version, updated_at) VALUES (?, '', 0, ?)
		ON CONFLICT (conversation_id) DO NOTHING`
	insertMessageSQL = `INSERT INTO messages (conversation_id, direction, sender, body, provider_message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING RETURNING id`
	updateDialogueSQL = `UPDATE dialogue_contexts SET state = ?, interested_country = ?, program_interest = ?,
		preferred_intake = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	closeConversationSQL = `UPDATE conversations SET is_open = FALSE, closed_at = ? WHERE id = ? AND is_open`
	closeInactiveSQL     = `UPDATE conversations SET is_open = FALSE, closed_at = ?
		WHERE is_open AND started_at < ? AND NOT EXISTS (
			SELECT 1 FROM messages WHERE messages.conversation_id = conversations.id AND messages.created_at >= ?
		)`
)

// GormStore implements Store on Postgres through gorm
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a GormStore from an open connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// GetOrCreateContact inserts the contact if missing, then loads it
func (s *GormStore) GetOrCreateContact(ctx context.Context, identifier string) (*chat.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.db.Exec(insertContactSQL, identifier, s.now()).Error; err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	var contact chat.Contact
	if err := s.db.Where("identifier = ?", identifier).First(&contact).Error; err != nil {
		return nil, fmt.Errorf("load contact: %w", err)
	}
	return &contact, nil
}

// UpdateContactName sets the contact's display name
func (s *GormStore) UpdateContactName(ctx context.Context, contact *chat.Contact, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Exec("UPDATE contacts SET name = ? WHERE id = ?", name, contact.ID).Error; err != nil {
		return fmt.Errorf("update contact name: %w", err)
	}
	contact.Name = &name
	return nil
}

// GetOrCreateOpenConversation inserts an open conversation unless the
// partial unique index already holds one, then loads it
func (s *GormStore) GetOrCreateOpenConversation(ctx context.Context, contact *chat.Contact) (*chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.db.Exec(insertConversationSQL, contact.ID, s.now()).Error; err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	var conversation chat.Conversation
	if err := s.db.Where("contact_id = ? AND is_open = ?", contact.ID, true).First(&conversation).Error; err != nil {
		return nil, fmt.Errorf("load open conversation: %w", err)
	}
	conversation.Contact = contact
	return &conversation, nil
}

// FindOpenConversation loads the open conversation of an identifier
func (s *GormStore) FindOpenConversation(ctx context.Context, identifier string) (*chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var contact chat.Contact
	if err := s.db.Where("identifier = ?", identifier).First(&contact).Error; err != nil {
		return nil, notFound("load contact", err)
	}
	var conversation chat.Conversation
	if err := s.db.Where("contact_id = ? AND is_open = ?", contact.ID, true).First(&conversation).Error; err != nil {
		return nil, notFound("load open conversation", err)
	}
	conversation.Contact = &contact
	return &conversation, nil
}

// CloseConversation closes a conversation if it is still open
func (s *GormStore) CloseConversation(ctx context.Context, conversation *chat.Conversation, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Exec(closeConversationSQL, at, conversation.ID).Error; err != nil {
		return fmt.Errorf("close conversation: %w", err)
	}
	conversation.Close(at)
	return nil
}

// CloseInactiveConversations closes idle open conversations in one statement
func (s *GormStore) CloseInactiveConversations(ctx context.Context, idleSince, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res := s.db.Exec(closeInactiveSQL, at, idleSince, idleSince)
	if res.Error != nil {
		return 0, fmt.Errorf("close inactive conversations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MessageExists reports whether a provider message id is already stored
func (s *GormStore) MessageExists(ctx context.Context, providerMessageID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var count int64
	err := s.db.Model(&chat.Message{}).Where("provider_message_id = ?", providerMessageID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count messages: %w", err)
	}
	return count > 0, nil
}

// AppendMessage inserts a message outside any dialogue cycle
func (s *GormStore) AppendMessage(ctx context.Context, message *chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.insertMessage(s.db, message)
}

// insertMessage relies on the unique provider id index, an insert that
// returns no row is a duplicate
func (s *GormStore) insertMessage(db *gorm.DB, message *chat.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}
	rows, err := db.Raw(
		insertMessageSQL,
		message.ConversationID,
		string(message.Direction),
		string(message.Sender),
		message.Body,
		message.ProviderMessageID,
		message.CreatedAt,
	).Rows()
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return chat.ErrDuplicateMessage
	}
	if err := rows.Scan(&message.ID); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns the messages of a conversation in insertion order
func (s *GormStore) ListMessages(ctx context.Context, conversationID uint) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var messages []chat.Message
	err := s.db.Where("conversation_id = ?", conversationID).Order("id asc").Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// UpdateDialogue locks the context row, stores the inbound message and
// applies fn in one transaction. Any failure rolls the inbound row back
// with the rest, so a redelivered event is processed again.
func (s *GormStore) UpdateDialogue(ctx context.Context, conversationID uint, inbound *chat.Message, fn DialogueFunc) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if tx.Error != nil {
		return fmt.Errorf("begin dialogue transaction: %w", tx.Error)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			err = mapConflict(err)
		}
	}()

	dc, err := s.lockDialogue(tx, conversationID)
	if err != nil {
		return err
	}
	version := dc.Version

	if inbound != nil {
		if err := s.insertMessage(tx, inbound); err != nil {
			if errors.Is(err, chat.ErrDuplicateMessage) {
				return err
			}
			return fmt.Errorf("record inbound message: %w", err)
		}
	}

	write, err := fn(dc)
	if err != nil {
		return err
	}
	if write {
		res := tx.Exec(
			updateDialogueSQL,
			dc.State,
			dc.InterestedCountry,
			dc.ProgramInterest,
			dc.PreferredIntake,
			s.now(),
			dc.ID,
			version,
		)
		if res.Error != nil {
			return fmt.Errorf("update dialogue: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return chat.ErrConcurrentUpdate
		}
		dc.Version = version + 1
	}
	return tx.Commit().Error
}

// lockDialogue loads the context row FOR UPDATE, creating it on first use
func (s *GormStore) lockDialogue(tx *gorm.DB, conversationID uint) (*chat.DialogueContext, error) {
	var dc chat.DialogueContext
	err := tx.Set("gorm:query_option", "FOR UPDATE").Where("conversation_id = ?", conversationID).First(&dc).Error
	if err == nil {
		return &dc, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, fmt.Errorf("lock dialogue: %w", err)
	}
	if err := tx.Exec(insertDialogueSQL, conversationID, s.now()).Error; err != nil {
		return nil, fmt.Errorf("insert dialogue: %w", err)
	}
	dc = chat.DialogueContext{}
	if err := tx.Set("gorm:query_option", "FOR UPDATE").Where("conversation_id = ?", conversationID).First(&dc).Error; err != nil {
		return nil, fmt.Errorf("lock dialogue: %w", err)
	}
	return &dc, nil
}

// mapConflict turns Postgres serialization failures and deadlocks into
// chat.ErrConcurrentUpdate so callers retry the whole cycle
func mapConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", chat.ErrConcurrentUpdate, pqErr.Message)
		}
	}
	return err
}

func notFound(action string, err error) error {
	if gorm.IsRecordNotFoundError(err) {
		return chat.ErrNotFound
	}
	return fmt.Errorf("%s: %w", action, err)
}
