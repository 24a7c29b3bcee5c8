package chat

import "time"

// Direction of a stored message relative to the bot
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// SenderRole identifies who authored a stored message
type SenderRole string

const (
	SenderUser       SenderRole = "user"
	SenderBot        SenderRole = "bot"
	SenderHumanAgent SenderRole = "human-agent"
)

// Message is a single message exchanged in a Conversation. Messages are
// append-only once stored.
type Message struct {
	ID                uint       `gorm:"primary_key" json:"id"`
	ConversationID    uint       `gorm:"column:conversation_id;not null;index" json:"conversationId"`
	Direction         Direction  `gorm:"column:direction;type:varchar(8);not null" json:"direction"`
	Sender            SenderRole `gorm:"column:sender;type:varchar(16);not null" json:"sender"`
	Body              string     `gorm:"column:body;type:text;not null;default:''" json:"body"`
	ProviderMessageID *string    `gorm:"column:provider_message_id;type:varchar(255);unique_index" json:"providerMessageId,omitempty"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// ProviderID returns the provider message identifier or an empty string
func (m *Message) ProviderID() string {
	if m.ProviderMessageID == nil {
		return ""
	}
	return *m.ProviderMessageID
}
