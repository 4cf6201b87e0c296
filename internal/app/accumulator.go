package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
)

// Default batch size configuration values.
const (
	DefaultMaxBatchSize = 5 << 20 // 5MiB
	DefaultSafetyMargin = 1024
)

// Deliverer hands a sealed group to the delivery step.
type Deliverer interface {
	Send(ctx context.Context, g *domain.Group, seq uint64) error
}

// DeliverFunc adapts a function to the Deliverer interface.
type DeliverFunc func(ctx context.Context, g *domain.Group, seq uint64) error

// Send calls f(ctx, g, seq).
func (f DeliverFunc) Send(ctx context.Context, g *domain.Group, seq uint64) error {
	return f(ctx, g, seq)
}

// Accumulator packs records into groups whose encoded size stays below
// maxBatchSize - safetyMargin. A record that alone exceeds the ceiling is
// kept as a group of one.
//
// Accumulator is not safe for concurrent use; the driver owns it.
type Accumulator struct {
	current *domain.Group
	ceiling int
	deliver Deliverer
	logger  ports.Logger
	seq     uint64
}

// NewAccumulator creates an accumulator that seals groups into deliver.
func NewAccumulator(maxBatchSize, safetyMargin int, deliver Deliverer, logger ports.Logger) *Accumulator {
	return &Accumulator{
		current: domain.NewGroup(),
		ceiling: maxBatchSize - safetyMargin,
		deliver: deliver,
		logger:  logger,
	}
}

// Offer adds rec to the current group. If rec would push the group to the
// ceiling, the current group is sealed and delivered first and rec starts
// the next group. The record is always retained, even when that delivery fails.
func (a *Accumulator) Offer(ctx context.Context, rec domain.Record) error {
	enc, err := domain.EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode record %q: %w", rec.ID, err)
	}

	var sealErr error
	if a.current.SizeWith(len(enc)) >= a.ceiling && !a.current.Empty() {
		sealErr = a.seal(ctx)
	}

	if a.current.Empty() && a.current.SizeWith(len(enc)) >= a.ceiling {
		a.logger.Warn("record exceeds batch ceiling, sending as its own batch",
			ports.String("id", rec.ID),
			ports.Int("bytes", a.current.SizeWith(len(enc))),
			ports.Int("ceiling", a.ceiling),
		)
	}
	a.current.Append(rec, enc)
	return sealErr
}

// Flush seals and delivers whatever is accumulated. An empty group is a no-op.
func (a *Accumulator) Flush(ctx context.Context) error {
	if a.current.Empty() {
		return nil
	}
	return a.seal(ctx)
}

// seal detaches the current group before delivery so a failed group is never
// delivered twice.
func (a *Accumulator) seal(ctx context.Context) error {
	g := a.current
	a.current = domain.NewGroup()
	a.seq++
	return a.deliver.Send(ctx, g, a.seq)
}

// Pending returns the number of records in the current group.
func (a *Accumulator) Pending() int {
	return a.current.Len()
}

// PendingBytes returns the encoded size of the current group.
func (a *Accumulator) PendingBytes() int {
	return a.current.Size()
}

// Sealed returns the number of groups sealed so far.
func (a *Accumulator) Sealed() uint64 {
	return a.seq
}
