package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
)

// mockLogger counts messages per level for assertions.
type mockLogger struct {
	mu       sync.Mutex
	messages map[string][]string
}

func newMockLogger() *mockLogger {
	return &mockLogger{messages: map[string][]string{}}
}

func (m *mockLogger) log(level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[level] = append(m.messages[level], msg)
}

func (m *mockLogger) Debug(msg string, fields ...ports.Field) { m.log("debug", msg) }
func (m *mockLogger) Info(msg string, fields ...ports.Field)  { m.log("info", msg) }
func (m *mockLogger) Warn(msg string, fields ...ports.Field)  { m.log("warn", msg) }
func (m *mockLogger) Error(msg string, fields ...ports.Field) { m.log("error", msg) }

// count returns how many messages equal to msg were logged at level.
func (m *mockLogger) count(level, msg string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, got := range m.messages[level] {
		if got == msg {
			n++
		}
	}
	return n
}

func (m *mockLogger) total(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[level])
}

// fakeClock advances instantly on Sleep and records every wait.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func (c *fakeClock) Slept() time.Duration {
	var total time.Duration
	for _, d := range c.Sleeps() {
		total += d
	}
	return total
}

// mockSink records delivered payloads. fail decides whether call n (0-based) fails.
type mockSink struct {
	mu        sync.Mutex
	calls     int
	delivered [][]byte
	fail      func(call int) bool
	err       error // returned by failing calls; errSinkDown when nil
}

var errSinkDown = errors.New("sink unavailable")

func (s *mockSink) Deliver(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := s.calls
	s.calls++
	if s.fail != nil && s.fail(call) {
		if s.err != nil {
			return s.err
		}
		return errSinkDown
	}
	s.delivered = append(s.delivered, append([]byte(nil), payload...))
	return nil
}

func (s *mockSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *mockSink) Delivered() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.delivered...)
}

// memSource replays a fixed list of raw records, then returns err (io.EOF by default).
type memSource struct {
	records []domain.RawRecord
	err     error
	pos     int

	mu      sync.Mutex
	paused  bool
	pauses  int
	resumes int
}

func (s *memSource) Next(ctx context.Context) (domain.RawRecord, error) {
	if s.pos >= len(s.records) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

// pausingSource is a memSource that also implements ports.Backpressure.
type pausingSource struct {
	memSource
}

func (s *pausingSource) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	s.pauses++
}

func (s *pausingSource) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	s.resumes++
}

// chanSource blocks until a record arrives, the channel closes or ctx ends.
type chanSource struct {
	ch chan domain.RawRecord
}

func (s *chanSource) Next(ctx context.Context) (domain.RawRecord, error) {
	select {
	case r, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// pausingChanSource is a chanSource that also implements ports.Backpressure.
type pausingChanSource struct {
	chanSource

	mu      sync.Mutex
	paused  bool
	pauses  int
	resumes int
}

func (s *pausingChanSource) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	s.pauses++
}

func (s *pausingChanSource) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	s.resumes++
}

// recordingDeliverer captures sealed groups.
type recordingDeliverer struct {
	groups []*domain.Group
	seqs   []uint64
	err    error
}

func (r *recordingDeliverer) Send(ctx context.Context, g *domain.Group, seq uint64) error {
	r.groups = append(r.groups, g)
	r.seqs = append(r.seqs, seq)
	return r.err
}

func product(id, title, desc string) domain.RawRecord {
	return domain.RawRecord{"id": id, "title": title, "description": desc}
}
