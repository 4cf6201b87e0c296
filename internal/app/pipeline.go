package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
)

// PipelineConfig contains configuration for group delivery.
type PipelineConfig struct {
	// MaxRetries is the total number of attempts per group.
	MaxRetries int

	// RetryDelay is the base of the exponential backoff (RetryDelay * 2^attempt).
	RetryDelay time.Duration

	// RetryMaxDelay caps a single backoff wait. Zero means uncapped.
	RetryMaxDelay time.Duration

	// MinSendInterval is the minimum time between successful sends. Zero means unlimited.
	MinSendInterval time.Duration
}

// SendEventEmitter is called on send success or failure.
type SendEventEmitter interface {
	OnSendSuccess(records, bytesSent int, duration time.Duration)
	OnSendError(err error, records int, retryable bool)
}

// Pipeline delivers sealed groups to a sink with bounded retries,
// exponential backoff and a minimum send interval.
type Pipeline struct {
	config  PipelineConfig
	sink    ports.Sink
	clock   ports.Clock
	ledger  *domain.ErrorLedger
	logger  ports.Logger
	emitter SendEventEmitter
	backoff backoff
	limiter *intervalLimiter
}

// NewPipeline creates a pipeline delivering to sink.
func NewPipeline(
	config PipelineConfig,
	sink ports.Sink,
	clock ports.Clock,
	ledger *domain.ErrorLedger,
	logger ports.Logger,
	emitter SendEventEmitter,
) *Pipeline {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	return &Pipeline{
		config:  config,
		sink:    sink,
		clock:   clock,
		ledger:  ledger,
		logger:  logger,
		emitter: emitter,
		backoff: newBackoff(config.RetryDelay, config.RetryMaxDelay),
		limiter: newIntervalLimiter(config.MinSendInterval),
	}
}

// attempt is a single delivery try of one group.
type attempt struct {
	seq     uint64
	index   int
	records int
	bytes   int
	waited  time.Duration
}

func (a attempt) fields(extra ...ports.Field) []ports.Field {
	return append([]ports.Field{
		ports.Uint64("batch", a.seq),
		ports.Int("attempt", a.index+1),
		ports.Int("records", a.records),
		ports.Int("bytes", a.bytes),
	}, extra...)
}

// Send delivers g as batch number seq.
// It returns nil on success, the context error if ctx ends first, or an error
// wrapping domain.ErrExhaustedRetries after MaxRetries consecutive failures.
// A sink error wrapping domain.ErrRejected is recorded without retrying.
func (p *Pipeline) Send(ctx context.Context, g *domain.Group, seq uint64) error {
	if g == nil || g.Empty() {
		return nil
	}

	payload := g.Payload()
	at := attempt{seq: seq, records: g.Len(), bytes: len(payload)}

	var lastErr error
	for at.index = 0; at.index < p.config.MaxRetries; at.index++ {
		if err := p.waitForSlot(ctx); err != nil {
			return err
		}

		start := p.clock.Now()
		err := p.sink.Deliver(ctx, payload)
		if err == nil {
			now := p.clock.Now()
			p.limiter.Sent(now)
			p.logger.Info("sent batch", at.fields(ports.Duration("duration", now.Sub(start)))...)
			if p.emitter != nil {
				p.emitter.OnSendSuccess(at.records, at.bytes, now.Sub(start))
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if domain.Classify(err) == domain.OutcomeDeadLetter {
			if p.emitter != nil {
				p.emitter.OnSendError(err, at.records, false)
			}
			p.record(seq, at, err)
			p.logger.Error("sink rejected batch", at.fields(ports.Err(err))...)
			return fmt.Errorf("batch %d: %w", seq, err)
		}

		lastErr = err
		final := at.index == p.config.MaxRetries-1
		if p.emitter != nil {
			p.emitter.OnSendError(err, at.records, !final)
		}
		if final {
			break
		}

		delay := p.backoff.Delay(at.index)
		p.logger.Warn("send failed, retrying", at.fields(ports.Duration("backoff", delay), ports.Err(err))...)
		if err := p.clock.Sleep(ctx, delay); err != nil {
			return err
		}
		at.waited += delay
	}

	p.record(seq, at, lastErr)
	p.logger.Error("send failed, retries exhausted",
		ports.Uint64("batch", seq),
		ports.Int("attempts", p.config.MaxRetries),
		ports.Int("records", at.records),
		ports.Int("bytes", at.bytes),
		ports.Duration("waited", at.waited),
		ports.Err(lastErr),
	)
	return fmt.Errorf("batch %d: %w: %w", seq, domain.ErrExhaustedRetries, lastErr)
}

// record appends an undeliverable group to the ledger.
func (p *Pipeline) record(seq uint64, at attempt, err error) {
	p.ledger.Append(domain.FailureRecord{
		Sequence: seq,
		Err:      err.Error(),
		At:       p.clock.Now(),
		Records:  at.records,
		Bytes:    at.bytes,
	})
}

// waitForSlot blocks until the minimum send interval has elapsed since the
// last successful send.
func (p *Pipeline) waitForSlot(ctx context.Context) error {
	delay := p.limiter.Delay(p.clock.Now())
	if delay <= 0 {
		return nil
	}
	p.logger.Debug("rate limited", ports.Duration("wait", delay))
	return p.clock.Sleep(ctx, delay)
}

// SetSendInterval changes the minimum send interval at runtime.
// Safe to call from any goroutine.
func (p *Pipeline) SetSendInterval(interval time.Duration) {
	p.limiter.SetInterval(p.clock.Now(), interval)
	p.logger.Info("send interval updated", ports.Duration("interval", interval))
}

// SendInterval returns the current minimum send interval.
func (p *Pipeline) SendInterval() time.Duration {
	return p.limiter.Interval()
}
