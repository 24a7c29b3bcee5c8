package chat

import "errors"

var (
	// ErrDuplicateInbound signals an inbound message that was already stored
	ErrDuplicateInbound = errors.New("duplicate inbound message")
	// ErrDuplicateMessage is returned by storage when a provider message
	// identifier is already taken
	ErrDuplicateMessage = errors.New("message with provider id already stored")
	// ErrUnresolvedSender is returned for events without a sender identifier
	ErrUnresolvedSender = errors.New("inbound event has no sender identifier")
	// ErrConcurrentUpdate is returned when another writer changed a dialogue
	// context between read and write
	ErrConcurrentUpdate = errors.New("concurrent dialogue context update")
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")
)
