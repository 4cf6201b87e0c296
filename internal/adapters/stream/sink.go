// Package stream writes groups to an io.Writer, one JSON array per line.
package stream

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Sink implements ports.Sink over an io.Writer. Useful for dry runs.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSink creates a sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Deliver writes payload followed by a newline.
func (s *Sink) Deliver(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, payload...)
	buf = append(buf, '\n')
	if _, err := s.w.Write(buf); err != nil {
		return fmt.Errorf("write group: %w", err)
	}
	return nil
}
