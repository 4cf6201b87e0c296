package feedship

import (
	"github.com/bft-labs/feedship/internal/app"
	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
)

// Core types, re-exported for library users.
type (
	// RawRecord is an untyped field map produced by a RecordSource.
	RawRecord = domain.RawRecord
	// Record is a batchable product entry.
	Record = domain.Record
	// FailureRecord describes a batch that exhausted its retries.
	FailureRecord = domain.FailureRecord

	// RecordSource yields raw records; io.EOF ends the stream.
	RecordSource = ports.RecordSource
	// Backpressure is optionally implemented by sources that can pause.
	Backpressure = ports.Backpressure
	// Sink receives each batch as a JSON array.
	Sink = ports.Sink
	// SinkFunc adapts a function to Sink.
	SinkFunc = ports.SinkFunc
	// Clock abstracts time for backoff and rate limiting.
	Clock = ports.Clock

	// Logger is the interface for structured logging.
	Logger = ports.Logger
	// LogField represents a structured log field.
	LogField = ports.Field

	// Stats is a snapshot of run counters.
	Stats = app.Stats
)

// Summary is the terminal report of a run.
type Summary struct {
	Stats    Stats
	State    State
	Failures []FailureRecord
}

func convertSummary(s app.Summary) Summary {
	return Summary{
		Stats:    s.Stats,
		State:    convertState(s.State),
		Failures: s.Failures,
	}
}

// Errors returned by feedship. Check with errors.Is.
var (
	ErrMissingField     = domain.ErrMissingField
	ErrExhaustedRetries = domain.ErrExhaustedRetries
	ErrRejected         = domain.ErrRejected
	ErrSourceFailure    = domain.ErrSourceFailure
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrAlreadyStopped   = domain.ErrAlreadyStopped
	ErrShutdownTimeout  = domain.ErrShutdownTimeout
)

// State is the lifecycle state of a Feedship instance.
type State int

const (
	StateRunning State = iota
	StateDraining
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// IsTerminal returns true once no more records will be delivered.
func (s State) IsTerminal() bool {
	return s == StateStopped
}

func convertState(s app.DriverState) State {
	switch s {
	case app.StateRunning:
		return StateRunning
	case app.StateDraining:
		return StateDraining
	default:
		return StateStopped
	}
}
