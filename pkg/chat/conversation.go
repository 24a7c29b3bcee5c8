package chat

import (
	"time"
)

// Conversation is a bounded session between one Contact and the bot
type Conversation struct {
	ID        uint       `gorm:"primary_key" json:"id"`
	ContactID uint       `gorm:"column:contact_id;not null;index" json:"contactId"`
	Contact   *Contact   `gorm:"-" json:"contact,omitempty"`
	IsOpen    bool       `gorm:"column:is_open;not null;default:true" json:"isOpen"`
	StartedAt time.Time  `gorm:"column:started_at;not null;default:CURRENT_TIMESTAMP" json:"startedAt"`
	ClosedAt  *time.Time `gorm:"column:closed_at" json:"closedAt,omitempty"`
}

// Close marks the conversation closed. Closing is one way, a closed
// conversation keeps its original close time.
func (c *Conversation) Close(at time.Time) bool {
	if !c.IsOpen {
		return false
	}
	c.IsOpen = false
	c.ClosedAt = &at
	return true
}

// Destination is the identifier replies for this conversation are sent to
func (c *Conversation) Destination() string {
	if c.Contact == nil {
		return ""
	}
	return c.Contact.Identifier
}
