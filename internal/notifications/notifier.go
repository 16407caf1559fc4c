package notifications

import "context"

// Message is what actually goes out to a recipient once the worker
// has resolved the outbox row against the user directory.
type Message struct {
	Email   string
	Name    string
	Kind    string
	Subject string
	Body    string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
