package alerting

import "context"

// Message is either plain text or an embed card. When Title is set the
// card fields are used and Text is ignored.
type Message struct {
	Text         string
	Title        string
	Description  string
	Color        int
	ThumbnailURL string
}

// Notifier delivers a message to the configured destination. Delivery is
// fire-and-forget from the engine's perspective: callers log send errors
// and move on, they never abort a pass on one.
type Notifier interface {
	Notify(ctx context.Context, message Message) error
}
