package app

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
)

// ShutdownTimeout is the default maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// DriverState represents the lifecycle state of the driver.
type DriverState int

const (
	StateRunning DriverState = iota
	StateDraining
	StateStopped
)

// String returns a human-readable representation of the state.
func (s DriverState) String() string {
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

// fsm state and event names.
const (
	fsmRunning  = "running"
	fsmDraining = "draining"
	fsmStopped  = "stopped"

	eventDrain = "drain"
	eventStop  = "stop"
)

func stateFromFSM(name string) DriverState {
	switch name {
	case fsmRunning:
		return StateRunning
	case fsmDraining:
		return StateDraining
	default:
		return StateStopped
	}
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current DriverState, reason string)
}

// Lifecycle is the one-way RUNNING -> DRAINING -> STOPPED state machine of a
// driver. RUNNING may also go straight to STOPPED (end of stream, fatal error).
// Safe for concurrent use.
type Lifecycle struct {
	fsm     *fsm.FSM
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle creates a lifecycle in StateRunning.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	l := &Lifecycle{logger: logger, emitter: emitter}
	l.fsm = fsm.NewFSM(
		fsmRunning,
		fsm.Events{
			{Name: eventDrain, Src: []string{fsmRunning}, Dst: fsmDraining},
			{Name: eventStop, Src: []string{fsmRunning, fsmDraining}, Dst: fsmStopped},
		},
		fsm.Callbacks{
			"enter_state": l.onEnterState,
		},
	)
	return l
}

func (l *Lifecycle) onEnterState(_ context.Context, e *fsm.Event) {
	from, to := stateFromFSM(e.Src), stateFromFSM(e.Dst)
	var reason string
	if len(e.Args) > 0 {
		reason, _ = e.Args[0].(string)
	}

	if l.emitter != nil {
		l.emitter.OnStateChange(from, to, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", from.String()),
		ports.String("to", to.String()),
		ports.String("reason", reason),
	)
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() DriverState {
	return stateFromFSM(l.fsm.Current())
}

// TransitionTo attempts to transition to a new state.
// Returns an error wrapping domain.ErrInvalidTransition if the transition is not valid.
func (l *Lifecycle) TransitionTo(newState DriverState, reason string) error {
	var event string
	switch newState {
	case StateDraining:
		event = eventDrain
	case StateStopped:
		event = eventStop
	default:
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, l.State(), newState)
	}

	// Transitions must land even when the run context is already canceled.
	if err := l.fsm.Event(context.Background(), event, reason); err != nil {
		return fmt.Errorf("%w: %s -> %s: %v", domain.ErrInvalidTransition, l.State(), newState, err)
	}
	return nil
}

// CanDrain returns true if a shutdown request can still start draining.
func (l *Lifecycle) CanDrain() bool {
	return l.fsm.Can(eventDrain)
}

// Stopped returns true once the terminal state has been reached.
func (l *Lifecycle) Stopped() bool {
	return l.fsm.Is(fsmStopped)
}
