package store

import (
	"github.com/jinzhu/gorm"
	// Registers the postgres dialect and lib/pq driver
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/City-Bureau/intakechat/pkg/chat"
)

// Open connects to Postgres with a libpq connection string
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open("postgres", dsn)
}

var constraints = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uix_conversations_open_contact ON conversations (contact_id) WHERE is_open`,
	`ALTER TABLE conversations DROP CONSTRAINT IF EXISTS fk_conversations_contact`,
	`ALTER TABLE conversations ADD CONSTRAINT fk_conversations_contact
		FOREIGN KEY (contact_id) REFERENCES contacts (id) ON DELETE CASCADE`,
	`ALTER TABLE dialogue_contexts DROP CONSTRAINT IF EXISTS fk_dialogue_contexts_conversation`,
	`ALTER TABLE dialogue_contexts ADD CONSTRAINT fk_dialogue_contexts_conversation
		FOREIGN KEY (conversation_id) REFERENCES conversations (id) ON DELETE CASCADE`,
	`ALTER TABLE messages DROP CONSTRAINT IF EXISTS fk_messages_conversation`,
	`ALTER TABLE messages ADD CONSTRAINT fk_messages_conversation
		FOREIGN KEY (conversation_id) REFERENCES conversations (id) ON DELETE CASCADE`,
}

// Migrate creates the tables and the constraints the resolver and the
// ingestion gate rely on
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&chat.Contact{},
		&chat.Conversation{},
		&chat.DialogueContext{},
		&chat.Message{},
	).Error
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range constraints {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
