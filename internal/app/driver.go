package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
)

// DriverConfig contains configuration for a feed run.
type DriverConfig struct {
	MaxBatchSize int
	SafetyMargin int
	Pipeline     PipelineConfig

	// ContinueOnFailure keeps the run going after a group exhausts its retries.
	// The failure stays in the ledger and Run still returns an error at the end.
	ContinueOnFailure bool
}

// Emitter receives both lifecycle and send events.
type Emitter interface {
	EventEmitter
	SendEventEmitter
}

// Driver pulls records from a source, feeds batchable ones to the
// accumulator and owns the shutdown protocol.
type Driver struct {
	config      DriverConfig
	source      ports.RecordSource
	accumulator *Accumulator
	pipeline    *Pipeline
	lifecycle   *Lifecycle
	ledger      *domain.ErrorLedger
	logger      ports.Logger
	stats       counters

	started    atomic.Bool
	shutdownMu sync.Once
	shutdownCh chan struct{}
	done       chan struct{}
}

// NewDriver wires a driver, its accumulator and its delivery pipeline.
// emitter may be nil.
func NewDriver(
	config DriverConfig,
	source ports.RecordSource,
	sink ports.Sink,
	clock ports.Clock,
	logger ports.Logger,
	emitter Emitter,
) *Driver {
	var (
		stateEmitter EventEmitter
		sendEmitter  SendEventEmitter
	)
	if emitter != nil {
		stateEmitter, sendEmitter = emitter, emitter
	}

	ledger := domain.NewErrorLedger()
	d := &Driver{
		config:     config,
		source:     source,
		ledger:     ledger,
		logger:     logger,
		lifecycle:  NewLifecycle(logger, stateEmitter),
		pipeline:   NewPipeline(config.Pipeline, sink, clock, ledger, logger, sendEmitter),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
	d.accumulator = NewAccumulator(config.MaxBatchSize, config.SafetyMargin, DeliverFunc(d.deliver), logger)
	return d
}

// Run executes the feed loop until the source ends, Shutdown is called, or a
// fatal error occurs. The returned summary is valid in every case.
// Canceling ctx aborts in-flight delivery; use Shutdown for a graceful drain.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	if !d.started.CompareAndSwap(false, true) {
		return d.Summary(), domain.ErrAlreadyStopped
	}
	defer close(d.done)

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	go func() {
		select {
		case <-d.shutdownCh:
			cancelRead()
		case <-readCtx.Done():
		}
	}()

	err := d.loop(ctx, readCtx)
	return d.Summary(), err
}

func (d *Driver) loop(ctx, readCtx context.Context) error {
	var deliveryErr error

	for {
		if d.shutdownRequested() {
			return d.drain(ctx, deliveryErr)
		}

		raw, err := d.source.Next(readCtx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return d.finish(ctx, deliveryErr)
			case d.shutdownRequested() && ctx.Err() == nil:
				// Next was interrupted by Shutdown.
				return d.drain(ctx, deliveryErr)
			case ctx.Err() != nil:
				d.stop("context canceled")
				return ctx.Err()
			default:
				d.logger.Error("record source failed", ports.Err(err))
				d.stop("source failure")
				return fmt.Errorf("%w: %w", domain.ErrSourceFailure, err)
			}
		}

		if d.shutdownRequested() || d.lifecycle.State() != StateRunning {
			d.stats.update(func(s *Stats) { s.Ignored++ })
			continue
		}

		if err := d.handle(ctx, raw); err != nil {
			if ctx.Err() != nil || !d.continuable(err) {
				d.stop("delivery failed")
				return err
			}
			if deliveryErr == nil {
				deliveryErr = err
			}
		}
	}
}

// continuable reports whether the run goes on after a delivery error.
// Rejected groups are dead-lettered; exhausted retries only with ContinueOnFailure.
func (d *Driver) continuable(err error) bool {
	switch domain.Classify(err) {
	case domain.OutcomeDeadLetter:
		return true
	case domain.OutcomeFatal:
		return d.config.ContinueOnFailure && errors.Is(err, domain.ErrExhaustedRetries)
	default:
		return false
	}
}

// handle extracts one raw record and offers it when batchable.
func (d *Driver) handle(ctx context.Context, raw domain.RawRecord) error {
	rec, err := domain.ExtractRecord(raw)
	if domain.Classify(err) == domain.OutcomeSkip {
		d.stats.update(func(s *Stats) { s.Skipped++ })
		d.logger.Debug("skipping record", ports.Err(err), ports.String("id", rec.ID))
		return nil
	}

	d.stats.update(func(s *Stats) { s.Processed++ })
	return d.accumulator.Offer(ctx, rec)
}

// deliver is the accumulator's delivery step. The source is paused for the
// duration of the send.
func (d *Driver) deliver(ctx context.Context, g *domain.Group, seq uint64) error {
	if bp, ok := d.source.(ports.Backpressure); ok {
		bp.Pause()
		defer func() {
			// Once draining, the source stays paused.
			if !d.shutdownRequested() {
				bp.Resume()
			}
		}()
	}

	err := d.pipeline.Send(ctx, g, seq)
	switch {
	case err == nil:
		d.stats.update(func(s *Stats) {
			s.BatchesSent++
			s.RecordsSent += g.Len()
			s.BytesSent += int64(g.Size())
		})
	case errors.Is(err, domain.ErrExhaustedRetries), errors.Is(err, domain.ErrRejected):
		d.stats.update(func(s *Stats) { s.Failures++ })
	}
	return err
}

// finish handles normal end of stream.
func (d *Driver) finish(ctx context.Context, prior error) error {
	err := d.accumulator.Flush(ctx)
	d.stop("end of stream")
	return firstErr(prior, err)
}

// drain flushes the partial group once after a shutdown request.
func (d *Driver) drain(ctx context.Context, prior error) error {
	if err := d.lifecycle.TransitionTo(StateDraining, "shutdown requested"); err != nil {
		return err
	}
	if bp, ok := d.source.(ports.Backpressure); ok {
		bp.Pause()
	}

	err := d.accumulator.Flush(ctx)
	d.stop("drained")
	return firstErr(prior, err)
}

func (d *Driver) stop(reason string) {
	if d.lifecycle.Stopped() {
		return
	}
	if err := d.lifecycle.TransitionTo(StateStopped, reason); err != nil {
		d.logger.Error("failed to stop", ports.Err(err))
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Shutdown requests a graceful drain. It takes effect between records: a
// delivery in progress completes first, then the partial group is flushed
// and the driver stops. Safe to call from any goroutine, more than once.
func (d *Driver) Shutdown() {
	d.shutdownMu.Do(func() {
		d.logger.Info("shutdown requested", ports.String("state", d.lifecycle.State().String()))
		close(d.shutdownCh)
	})
}

func (d *Driver) shutdownRequested() bool {
	select {
	case <-d.shutdownCh:
		return true
	default:
		return false
	}
}

// Done is closed when Run returns.
func (d *Driver) Done() <-chan struct{} {
	return d.done
}

// WaitWithTimeout waits for Run to return.
// Returns domain.ErrShutdownTimeout if the timeout expires.
func (d *Driver) WaitWithTimeout(timeout time.Duration) error {
	select {
	case <-d.done:
		return nil
	case <-time.After(timeout):
		d.logger.Warn("shutdown timeout, forcing exit", ports.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}

// State returns the current driver state.
func (d *Driver) State() DriverState {
	return d.lifecycle.State()
}

// Stats returns a snapshot of the driver counters.
func (d *Driver) Stats() Stats {
	return d.stats.snapshot()
}

// Failures returns a snapshot of the error ledger.
func (d *Driver) Failures() []domain.FailureRecord {
	return d.ledger.Entries()
}

// Summary returns the current counters, state and ledger.
func (d *Driver) Summary() Summary {
	return Summary{
		Stats:    d.Stats(),
		State:    d.State(),
		Failures: d.Failures(),
	}
}

// SetSendInterval changes the minimum interval between sends at runtime.
func (d *Driver) SetSendInterval(interval time.Duration) {
	d.pipeline.SetSendInterval(interval)
}
