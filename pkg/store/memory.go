package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/City-Bureau/intakechat/pkg/chat"
)

// MemoryStore is an in-process Store with the same uniqueness guarantees
// as the Postgres schema. Dialogue updates use optimistic version checks,
// so racing writers see chat.ErrConcurrentUpdate.
type MemoryStore struct {
	mu            sync.Mutex
	nextID        uint
	contacts      map[string]*chat.Contact
	conversations map[uint]*chat.Conversation
	dialogues     map[uint]*chat.DialogueContext
	messages      []chat.Message
	providerIDs   map[string]bool
	writes        map[uint]int
	now           func() time.Time
}

// NewMemoryStore is a constructor for MemoryStore structs
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contacts:      map[string]*chat.Contact{},
		conversations: map[uint]*chat.Conversation{},
		dialogues:     map[uint]*chat.DialogueContext{},
		providerIDs:   map[string]bool{},
		writes:        map[uint]int{},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

// GetOrCreateContact returns the contact for an identifier, creating it under the lock
func (s *MemoryStore) GetOrCreateContact(ctx context.Context, identifier string) (*chat.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.contacts[identifier]
	if !ok {
		contact = &chat.Contact{ID: s.id(), Identifier: identifier, CreatedAt: s.now()}
		s.contacts[identifier] = contact
	}
	copied := *contact
	return &copied, nil
}

// UpdateContactName sets the stored contact's display name
func (s *MemoryStore) UpdateContactName(ctx context.Context, contact *chat.Contact, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.contacts[contact.Identifier]
	if !ok {
		return chat.ErrNotFound
	}
	stored.Name = &name
	contact.Name = &name
	return nil
}

func (s *MemoryStore) openConversation(contactID uint) *chat.Conversation {
	for _, conversation := range s.conversations {
		if conversation.ContactID == contactID && conversation.IsOpen {
			return conversation
		}
	}
	return nil
}

// GetOrCreateOpenConversation keeps at most one open conversation per contact
func (s *MemoryStore) GetOrCreateOpenConversation(ctx context.Context, contact *chat.Contact) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation := s.openConversation(contact.ID)
	if conversation == nil {
		conversation = &chat.Conversation{ID: s.id(), ContactID: contact.ID, IsOpen: true, StartedAt: s.now()}
		s.conversations[conversation.ID] = conversation
	}
	copied := *conversation
	copied.Contact = contact
	return &copied, nil
}

// FindOpenConversation returns chat.ErrNotFound without an open conversation
func (s *MemoryStore) FindOpenConversation(ctx context.Context, identifier string) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.contacts[identifier]
	if !ok {
		return nil, chat.ErrNotFound
	}
	conversation := s.openConversation(contact.ID)
	if conversation == nil {
		return nil, chat.ErrNotFound
	}
	copiedContact := *contact
	copied := *conversation
	copied.Contact = &copiedContact
	return &copied, nil
}

// CloseConversation closes the stored conversation and the caller's copy
func (s *MemoryStore) CloseConversation(ctx context.Context, conversation *chat.Conversation, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.conversations[conversation.ID]; ok {
		stored.Close(at)
	}
	conversation.Close(at)
	return nil
}

// CloseInactiveConversations closes open conversations idle since idleSince
func (s *MemoryStore) CloseInactiveConversations(ctx context.Context, idleSince, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := map[uint]bool{}
	for _, message := range s.messages {
		if !message.CreatedAt.Before(idleSince) {
			active[message.ConversationID] = true
		}
	}
	var closed int64
	for _, conversation := range s.conversations {
		if conversation.IsOpen && conversation.StartedAt.Before(idleSince) && !active[conversation.ID] {
			conversation.Close(at)
			closed++
		}
	}
	return closed, nil
}

// MessageExists reports whether a provider message id is already stored
func (s *MemoryStore) MessageExists(ctx context.Context, providerMessageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.providerIDs[providerMessageID], nil
}

// AppendMessage stores a message, rejecting taken provider ids
func (s *MemoryStore) AppendMessage(ctx context.Context, message *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(message)
}

func (s *MemoryStore) appendLocked(message *chat.Message) error {
	if providerID := message.ProviderID(); providerID != "" {
		if s.providerIDs[providerID] {
			return chat.ErrDuplicateMessage
		}
		s.providerIDs[providerID] = true
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}
	message.ID = s.id()
	s.messages = append(s.messages, *message)
	return nil
}

// ListMessages returns the messages of a conversation in insertion order
func (s *MemoryStore) ListMessages(ctx context.Context, conversationID uint) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var messages []chat.Message
	for _, message := range s.messages {
		if message.ConversationID == conversationID {
			messages = append(messages, message)
		}
	}
	sort.SliceStable(messages, func(a, b int) bool { return messages[a].ID < messages[b].ID })
	return messages, nil
}

// UpdateDialogue applies fn to a snapshot of the context and commits it,
// along with the inbound message, only if no other writer committed first
func (s *MemoryStore) UpdateDialogue(ctx context.Context, conversationID uint, inbound *chat.Message, fn DialogueFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	stored, ok := s.dialogues[conversationID]
	if !ok {
		stored = &chat.DialogueContext{ID: s.id(), ConversationID: conversationID, UpdatedAt: s.now()}
		s.dialogues[conversationID] = stored
	}
	snapshot := *stored
	s.mu.Unlock()

	write, err := fn(&snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if inbound != nil && inbound.ProviderID() != "" && s.providerIDs[inbound.ProviderID()] {
		return chat.ErrDuplicateMessage
	}
	if write && stored.Version != snapshot.Version {
		return chat.ErrConcurrentUpdate
	}
	if inbound != nil {
		if err := s.appendLocked(inbound); err != nil {
			return err
		}
	}
	if !write {
		return nil
	}
	snapshot.Version++
	snapshot.UpdatedAt = s.now()
	*stored = snapshot
	s.writes[conversationID]++
	return nil
}

// Dialogue returns a copy of the stored context for a conversation
func (s *MemoryStore) Dialogue(conversationID uint) (chat.DialogueContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dc, ok := s.dialogues[conversationID]
	if !ok {
		return chat.DialogueContext{}, false
	}
	return *dc, true
}

// DialogueWrites counts committed context writes for a conversation
func (s *MemoryStore) DialogueWrites(conversationID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[conversationID]
}

// Counts returns the number of stored contacts and open conversations
func (s *MemoryStore) Counts() (contacts int, open int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conversation := range s.conversations {
		if conversation.IsOpen {
			open++
		}
	}
	return len(s.contacts), open
}
