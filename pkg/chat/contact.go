package chat

import "time"

// Contact is the durable identity of one messaging-platform sender
type Contact struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	Identifier string    `gorm:"column:identifier;type:varchar(64);not null;unique_index" json:"identifier"`
	Name       *string   `gorm:"column:name;type:varchar(255)" json:"name,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// DisplayName returns the contact name if one has been supplied by the channel
func (c *Contact) DisplayName() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}
