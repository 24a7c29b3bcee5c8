package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/City-Bureau/intakechat/pkg/chat"
	"github.com/City-Bureau/intakechat/pkg/store"
)

// AgentMessage is a reply written by a human agent after handover
type AgentMessage struct {
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	// Close ends the conversation once the message has been recorded
	Close bool `json:"close,omitempty"`
}

// Agent lets human agents talk through the same delivery channel and
// audit trail as the bot
type Agent struct {
	store      store.Store
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewAgent is a constructor for Agent structs
func NewAgent(s store.Store, dispatcher *Dispatcher) *Agent {
	return &Agent{store: s, dispatcher: dispatcher, now: time.Now}
}

// Reply sends an agent message to the recipient's open conversation
func (a *Agent) Reply(ctx context.Context, message AgentMessage) (*chat.Message, error) {
	if strings.TrimSpace(message.Recipient) == "" {
		return nil, chat.ErrUnresolvedSender
	}
	conversation, err := a.store.FindOpenConversation(ctx, message.Recipient)
	if err != nil {
		return nil, fmt.Errorf("find conversation for %s: %w", message.Recipient, err)
	}

	var sent *chat.Message
	if strings.TrimSpace(message.Body) != "" {
		sent, err = a.dispatcher.Send(ctx, conversation, chat.SenderHumanAgent, message.Body)
		if err != nil {
			return nil, err
		}
	}
	if message.Close {
		if err := a.store.CloseConversation(ctx, conversation, a.now().UTC()); err != nil {
			return sent, err
		}
	}
	return sent, nil
}

// CloseInactive closes open conversations without messages in the given
// window
func CloseInactive(ctx context.Context, s store.Store, window time.Duration, now time.Time) (int64, error) {
	return s.CloseInactiveConversations(ctx, now.Add(-window), now)
}
