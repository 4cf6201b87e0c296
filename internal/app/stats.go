package app

import (
	"sync"

	"github.com/bft-labs/feedship/internal/domain"
)

// Stats is a snapshot of driver counters.
type Stats struct {
	// Processed counts batchable records handed to the accumulator.
	Processed int `json:"processed"`
	// Skipped counts records discarded for a missing id or title.
	Skipped int `json:"skipped"`
	// Ignored counts records that arrived after draining began.
	Ignored int `json:"ignored"`

	BatchesSent int   `json:"batches_sent"`
	RecordsSent int   `json:"records_sent"`
	BytesSent   int64 `json:"bytes_sent"`
	// Failures counts groups that exhausted their retries or were rejected.
	Failures int `json:"failures"`
}

// Summary is the terminal report of a driver run.
type Summary struct {
	Stats    Stats                  `json:"stats"`
	State    DriverState            `json:"-"`
	Failures []domain.FailureRecord `json:"failures,omitempty"`
}

// counters holds the driver-owned counters behind a mutex so snapshots can be
// taken from other goroutines.
type counters struct {
	mu sync.Mutex
	s  Stats
}

func (c *counters) update(fn func(s *Stats)) {
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

func (c *counters) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
