package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/City-Bureau/intakechat/pkg/admissions"
	"github.com/City-Bureau/intakechat/pkg/chat"
	"github.com/City-Bureau/intakechat/pkg/store"
)

const defaultMaxAttempts = 3

// Result describes what happened to one inbound event
type Result struct {
	ConversationID uint
	Duplicate      bool
	Replied        bool
	State          admissions.State
}

// Engine runs inbound events through the gate, resolver, state machine
// and dispatcher
type Engine struct {
	store       store.Store
	gate        *Gate
	resolver    *Resolver
	machine     *admissions.Machine
	dispatcher  *Dispatcher
	maxAttempts int
	logger      *slog.Logger
}

// NewEngine wires an Engine over a store and a delivery channel
func NewEngine(s store.Store, machine *admissions.Machine, channel DeliveryChannel, logger *slog.Logger) *Engine {
	logger = loggerOrDefault(logger)
	return &Engine{
		store:       s,
		gate:        NewGate(s, nil, logger),
		resolver:    NewResolver(s, logger),
		machine:     machine,
		dispatcher:  NewDispatcher(channel, s, logger),
		maxAttempts: defaultMaxAttempts,
		logger:      logger,
	}
}

// WithSeenCache puts a best-effort duplicate cache in front of storage
func (e *Engine) WithSeenCache(seen SeenCache) *Engine {
	e.gate = NewGate(e.store, seen, e.logger)
	return e
}

// WithMaxAttempts bounds retries of the read-decide-write cycle
func (e *Engine) WithMaxAttempts(attempts int) *Engine {
	if attempts > 0 {
		e.maxAttempts = attempts
	}
	return e
}

// Dispatcher exposes the engine's dispatcher for other senders such as
// human agents
func (e *Engine) Dispatcher() *Dispatcher {
	return e.dispatcher
}

// Handle processes one inbound event. Storage errors are returned so the
// caller can signal the provider to redeliver, duplicates are not errors.
func (e *Engine) Handle(ctx context.Context, event chat.InboundEvent) (Result, error) {
	if err := event.Validate(); err != nil {
		return Result{}, err
	}
	logger := e.logger.With("sender", event.SenderID, "provider_message_id", event.ProviderMessageID)

	if err := e.gate.Check(ctx, event); err != nil {
		if errors.Is(err, chat.ErrDuplicateInbound) {
			logger.Info("skipping duplicate inbound message")
			return Result{Duplicate: true}, nil
		}
		return Result{}, err
	}

	conversation, err := e.resolver.Resolve(ctx, event)
	if err != nil {
		return Result{}, err
	}
	result := Result{ConversationID: conversation.ID}
	logger = logger.With("conversation_id", conversation.ID)

	inbound := e.gate.Inbound(conversation, event)
	decision, err := e.advance(ctx, conversation.ID, inbound)
	if errors.Is(err, chat.ErrDuplicateMessage) {
		logger.Info("skipping duplicate inbound message")
		result.Duplicate = true
		return result, nil
	}
	if err != nil {
		return result, err
	}
	e.gate.Remember(ctx, inbound)
	result.State = decision.Next.State
	if decision.Absorbed {
		logger.Debug("conversation handed over, bot silent")
		return result, nil
	}
	logger.Info("advanced dialogue", "state", decision.Next.State.String())

	if decision.HasReply() {
		if _, err := e.dispatcher.Send(ctx, conversation, chat.SenderBot, decision.Reply); err != nil {
			return result, err
		}
		result.Replied = true
	}
	return result, nil
}

// advance stores the inbound message and runs the state machine inside the
// store's serialized read-modify-write, retrying when another writer wins
// the race. Nothing is kept from a failed cycle, so a redelivered event
// starts over.
func (e *Engine) advance(ctx context.Context, conversationID uint, inbound *chat.Message) (admissions.Decision, error) {
	var decision admissions.Decision
	for attempt := 1; ; attempt++ {
		err := e.store.UpdateDialogue(ctx, conversationID, inbound, func(dc *chat.DialogueContext) (bool, error) {
			current, err := admissions.FromContext(dc)
			if err != nil {
				return false, err
			}
			decision = e.machine.Decide(current, inbound.Body)
			if decision.Absorbed {
				return false, nil
			}
			decision.Next.ApplyTo(dc)
			return true, nil
		})
		if err == nil {
			return decision, nil
		}
		if !errors.Is(err, chat.ErrConcurrentUpdate) || attempt >= e.maxAttempts {
			return admissions.Decision{}, fmt.Errorf("advance dialogue: %w", err)
		}
		e.logger.Warn("dialogue update conflict, retrying", "conversation_id", conversationID, "attempt", attempt)
	}
}
