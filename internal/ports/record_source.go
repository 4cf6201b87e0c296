package ports

import (
	"context"

	"github.com/bft-labs/feedship/internal/domain"
)

// RecordSource provides a lazy, finite, single-pass sequence of raw records.
type RecordSource interface {
	// Next returns the next raw record.
	// Returns io.EOF when the stream is complete.
	// Any other error is terminal: no further records are produced.
	Next(ctx context.Context) (domain.RawRecord, error)
}

// Backpressure is implemented by sources that can stop producing while the
// driver is busy delivering a group or draining.
type Backpressure interface {
	Pause()
	Resume()
}
