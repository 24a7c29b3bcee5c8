package bot

import "context"

// DeliveryChannel transmits a reply to the user's messaging client. The
// returned token is opaque to the bot.
type DeliveryChannel interface {
	Deliver(ctx context.Context, destination, text string) (string, error)
}

// SeenCache is a best-effort record of provider message ids already
// ingested. Storage stays the source of truth.
type SeenCache interface {
	Seen(ctx context.Context, providerMessageID string) (bool, error)
	MarkSeen(ctx context.Context, providerMessageID string) error
}
