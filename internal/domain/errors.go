package domain

import "errors"

// Domain errors represent error conditions in the feedship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrMissingField marks a record without an id or title. It is never retried.
	ErrMissingField = errors.New("feedship: missing required field")

	// ErrExhaustedRetries is returned when a group fails every delivery attempt.
	ErrExhaustedRetries = errors.New("feedship: delivery retries exhausted")

	// ErrRejected marks a group the sink can never accept, such as a message
	// over the broker size limit. It is not retried.
	ErrRejected = errors.New("feedship: group rejected by sink")

	// ErrSourceFailure wraps terminal errors raised by the record source.
	ErrSourceFailure = errors.New("feedship: record source failed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("feedship: invalid configuration")

	// ErrAlreadyStopped is returned when Run is called on a stopped driver.
	ErrAlreadyStopped = errors.New("feedship: driver already stopped")

	// ErrInvalidTransition is returned for a lifecycle transition the state machine forbids.
	ErrInvalidTransition = errors.New("feedship: invalid state transition")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("feedship: shutdown timeout")
)

// Outcome classifies the result of handling a record or a delivery attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeSkip: the record is discarded and counted.
	OutcomeSkip
	// OutcomeRetryable: the delivery attempt may be repeated.
	OutcomeRetryable
	// OutcomeDeadLetter: the group goes to the ledger and the run continues.
	OutcomeDeadLetter
	// OutcomeFatal: the run cannot continue.
	OutcomeFatal
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSkip:
		return "skip"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeDeadLetter:
		return "dead-letter"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps an error to its outcome. Sink errors that are not one of the
// domain sentinels are retryable.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrMissingField):
		return OutcomeSkip
	case errors.Is(err, ErrRejected):
		return OutcomeDeadLetter
	case errors.Is(err, ErrExhaustedRetries),
		errors.Is(err, ErrSourceFailure),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrAlreadyStopped),
		errors.Is(err, ErrInvalidTransition):
		return OutcomeFatal
	default:
		return OutcomeRetryable
	}
}
