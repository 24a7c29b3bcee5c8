package chat

import "time"

// DialogueContext holds the dialogue state and collected slots for one
// Conversation. State is stored as the raw state name, empty when the
// flow has not started.
type DialogueContext struct {
	ID                uint      `gorm:"primary_key" json:"id"`
	ConversationID    uint      `gorm:"column:conversation_id;not null;unique_index" json:"conversationId"`
	State             string    `gorm:"column:state;type:varchar(50);not null;default:''" json:"state"`
	InterestedCountry *string   `gorm:"column:interested_country;type:varchar(100)" json:"interestedCountry,omitempty"`
	ProgramInterest   *string   `gorm:"column:program_interest;type:varchar(100)" json:"programInterest,omitempty"`
	PreferredIntake   *string   `gorm:"column:preferred_intake;type:varchar(50)" json:"preferredIntake,omitempty"`
	Version           int64     `gorm:"column:version;not null;default:0" json:"version"`
	UpdatedAt         time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName keeps the table name independent of the struct name
func (DialogueContext) TableName() string { return "dialogue_contexts" }
