package mailer

import "context"

// Message is a rendered outbound email.
type Message struct {
	ToName   string
	ToEmail  string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers a single message. Implementations must be safe for
// concurrent use; callers treat delivery as best-effort.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
