package publishers

import "context"

// Publisher delivers events to one downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Selective is implemented by publishers that only take some entries.
type Selective interface {
	Accepts(evt Event) bool
}
