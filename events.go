package feedship

import (
	"time"

	"github.com/bft-labs/feedship/internal/app"
)

// EventHandler receives lifecycle and delivery events.
// Methods are called synchronously; keep them fast.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSendSuccess(event SendSuccessEvent)
	OnSendError(event SendErrorEvent)
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent is emitted after a batch is accepted by the sink.
type SendSuccessEvent struct {
	RecordCount int
	BytesSent   int
	Duration    time.Duration
}

// SendErrorEvent is emitted after each failed delivery attempt.
// Retryable is false on the last attempt of a batch.
type SendErrorEvent struct {
	Error       error
	RecordCount int
	Retryable   bool
}

// BaseEventHandler implements EventHandler with no-ops.
// Embed it to handle only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent) {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.DriverState, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnSendSuccess(records, bytesSent int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendSuccess(SendSuccessEvent{
		RecordCount: records,
		BytesSent:   bytesSent,
		Duration:    duration,
	})
}

func (e *eventEmitterWrapper) OnSendError(err error, records int, retryable bool) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendError(SendErrorEvent{
		Error:       err,
		RecordCount: records,
		Retryable:   retryable,
	})
}
