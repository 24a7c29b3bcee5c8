package chat

import "strings"

// InboundEvent is a typed inbound message handed over by the transport
// layer after it has verified the request
type InboundEvent struct {
	SenderID          string `json:"senderId"`
	SenderName        string `json:"senderName,omitempty"`
	Text              string `json:"text"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
}

// Validate rejects events that can't be attributed to a sender
func (e InboundEvent) Validate() error {
	if strings.TrimSpace(e.SenderID) == "" {
		return ErrUnresolvedSender
	}
	return nil
}

// HasProviderID reports whether the channel supplied a message identifier
func (e InboundEvent) HasProviderID() bool {
	return strings.TrimSpace(e.ProviderMessageID) != ""
}
