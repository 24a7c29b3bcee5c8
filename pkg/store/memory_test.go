package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-Bureau/intakechat/pkg/chat"
)

func TestMemoryStoreGetOrCreateIsAtomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan uint, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			contact, err := s.GetOrCreateContact(ctx, "+61400000000")
			assert.NoError(t, err)
			conversation, err := s.GetOrCreateOpenConversation(ctx, contact)
			assert.NoError(t, err)
			ids <- conversation.ID
		}()
	}
	wg.Wait()
	close(ids)

	first := <-ids
	for id := range ids {
		assert.Equal(t, first, id)
	}
	contacts, open := s.Counts()
	assert.Equal(t, 1, contacts)
	assert.Equal(t, 1, open)
}

func TestMemoryStoreClosedConversationIsReplaced(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	contact, _ := s.GetOrCreateContact(ctx, "a")
	conversation, _ := s.GetOrCreateOpenConversation(ctx, contact)

	require.NoError(t, s.CloseConversation(ctx, conversation, time.Now()))
	assert.False(t, conversation.IsOpen)
	assert.NotNil(t, conversation.ClosedAt)

	next, err := s.GetOrCreateOpenConversation(ctx, contact)
	require.NoError(t, err)
	assert.NotEqual(t, conversation.ID, next.ID)
}

func TestMemoryStoreAppendMessageDeduplicates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	providerID := "SM123"

	require.NoError(t, s.AppendMessage(ctx, &chat.Message{ConversationID: 1, ProviderMessageID: &providerID}))
	err := s.AppendMessage(ctx, &chat.Message{ConversationID: 1, ProviderMessageID: &providerID})
	assert.ErrorIs(t, err, chat.ErrDuplicateMessage)

	// Messages without provider ids are never deduplicated
	require.NoError(t, s.AppendMessage(ctx, &chat.Message{ConversationID: 1}))
	require.NoError(t, s.AppendMessage(ctx, &chat.Message{ConversationID: 1}))

	messages, _ := s.ListMessages(ctx, 1)
	assert.Len(t, messages, 3)
	exists, _ := s.MessageExists(ctx, providerID)
	assert.True(t, exists)
}

func TestMemoryStoreUpdateDialogueDetectsConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.UpdateDialogue(ctx, 7, nil, func(dc *chat.DialogueContext) (bool, error) {
		// Another writer commits while this one is deciding
		require.NoError(t, s.UpdateDialogue(ctx, 7, nil, func(inner *chat.DialogueContext) (bool, error) {
			inner.State = "ASK_COUNTRY"
			return true, nil
		}))
		dc.State = "ASK_COUNTRY"
		return true, nil
	})
	assert.ErrorIs(t, err, chat.ErrConcurrentUpdate)
	assert.Equal(t, 1, s.DialogueWrites(7))
}

func TestMemoryStoreUpdateDialogueSkipsWrite(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpdateDialogue(context.Background(), 3, nil, func(dc *chat.DialogueContext) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.DialogueWrites(3))
}

func TestMemoryStoreUpdateDialogueRecordsInbound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	providerID := "wamid.in"
	inbound := &chat.Message{ConversationID: 3, Direction: chat.Inbound, Body: "hi", ProviderMessageID: &providerID}

	failed := s.UpdateDialogue(ctx, 3, inbound, func(dc *chat.DialogueContext) (bool, error) {
		return false, errors.New("decide failed")
	})
	assert.EqualError(t, failed, "decide failed")
	exists, _ := s.MessageExists(ctx, providerID)
	assert.False(t, exists, "a failed cycle leaves no inbound row")

	require.NoError(t, s.UpdateDialogue(ctx, 3, inbound, func(dc *chat.DialogueContext) (bool, error) {
		dc.State = "ASK_COUNTRY"
		return true, nil
	}))
	messages, _ := s.ListMessages(ctx, 3)
	assert.Len(t, messages, 1)

	again := *inbound
	err := s.UpdateDialogue(ctx, 3, &again, func(dc *chat.DialogueContext) (bool, error) {
		return true, nil
	})
	assert.ErrorIs(t, err, chat.ErrDuplicateMessage)
	assert.Equal(t, 1, s.DialogueWrites(3))
}

func TestMemoryStoreConflictDiscardsInbound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	providerID := "wamid.lost"
	inbound := &chat.Message{ConversationID: 7, Direction: chat.Inbound, ProviderMessageID: &providerID}

	err := s.UpdateDialogue(ctx, 7, inbound, func(dc *chat.DialogueContext) (bool, error) {
		require.NoError(t, s.UpdateDialogue(ctx, 7, nil, func(inner *chat.DialogueContext) (bool, error) {
			return true, nil
		}))
		return true, nil
	})
	assert.ErrorIs(t, err, chat.ErrConcurrentUpdate)
	exists, _ := s.MessageExists(ctx, providerID)
	assert.False(t, exists)
}

func TestMemoryStoreCloseInactive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	past := time.Now().Add(-48 * time.Hour)
	s.now = func() time.Time { return past }

	idle, _ := s.GetOrCreateContact(ctx, "idle")
	idleConversation, _ := s.GetOrCreateOpenConversation(ctx, idle)
	busy, _ := s.GetOrCreateContact(ctx, "busy")
	busyConversation, _ := s.GetOrCreateOpenConversation(ctx, busy)

	s.now = func() time.Time { return time.Now() }
	require.NoError(t, s.AppendMessage(ctx, &chat.Message{ConversationID: busyConversation.ID}))

	closed, err := s.CloseInactiveConversations(ctx, time.Now().Add(-24*time.Hour), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	_, err = s.FindOpenConversation(ctx, "idle")
	assert.ErrorIs(t, err, chat.ErrNotFound)
	open, err := s.FindOpenConversation(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, busyConversation.ID, open.ID)
	assert.NotEqual(t, idleConversation.ID, open.ID)
}
