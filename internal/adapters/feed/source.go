// Package feed provides record sources that stream product entries from XML
// feeds and JSON-lines files.
package feed

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/bft-labs/feedship/internal/domain"
)

// decoder produces one raw record per call, io.EOF at the end.
type decoder interface {
	next() (domain.RawRecord, error)
}

type result struct {
	rec domain.RawRecord
	err error
}

// Source implements ports.RecordSource and ports.Backpressure.
// Decoding runs on a background goroutine one record ahead of the consumer,
// so Next honors context cancellation even while the underlying reader blocks.
type Source struct {
	dec    decoder
	closer io.Closer

	gate    gate
	items   chan result
	start   sync.Once
	stop    context.CancelFunc
	stopCtx context.Context

	mu      sync.Mutex
	termErr error
}

func newSource(dec decoder, closer io.Closer) *Source {
	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		dec:     dec,
		closer:  closer,
		items:   make(chan result),
		stopCtx: ctx,
		stop:    cancel,
	}
}

// Next returns the next raw record, io.EOF when the feed is exhausted, or the
// decode error that ended the feed. Terminal results repeat on later calls.
func (s *Source) Next(ctx context.Context) (domain.RawRecord, error) {
	s.mu.Lock()
	termErr := s.termErr
	s.mu.Unlock()
	if termErr != nil {
		return nil, termErr
	}

	s.start.Do(func() { go s.produce() })

	select {
	case r := <-s.items:
		if r.err != nil {
			s.mu.Lock()
			s.termErr = r.err
			s.mu.Unlock()
			return nil, r.err
		}
		return r.rec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.stopCtx.Done():
		return nil, errClosed
	}
}

var errClosed = errors.New("feed source closed")

func (s *Source) produce() {
	for {
		if err := s.gate.wait(s.stopCtx); err != nil {
			return
		}
		rec, err := s.dec.next()
		select {
		case s.items <- result{rec: rec, err: err}:
		case <-s.stopCtx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// Pause stops decoding ahead until Resume is called.
func (s *Source) Pause() {
	s.gate.pause()
}

// Resume lets decoding continue.
func (s *Source) Resume() {
	s.gate.resume()
}

// Close stops the decoder goroutine and closes the underlying reader if it
// was opened by this package.
func (s *Source) Close() error {
	s.stop()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// gate blocks the producer while paused.
type gate struct {
	mu     sync.Mutex
	paused bool
	open   chan struct{}
}

func (g *gate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.open = make(chan struct{})
	}
}

func (g *gate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.open)
	}
}

func (g *gate) wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return nil
	}
	open := g.open
	g.mu.Unlock()

	select {
	case <-open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
