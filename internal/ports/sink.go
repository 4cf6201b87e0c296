package ports

import "context"

// Sink receives delivered groups.
type Sink interface {
	// Deliver transmits one serialized group (a JSON array).
	// Returned errors are retried, except those wrapping domain.ErrRejected.
	Deliver(ctx context.Context, payload []byte) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, payload []byte) error

// Deliver calls f(ctx, payload).
func (f SinkFunc) Deliver(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}
