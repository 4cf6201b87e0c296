package feedship_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/feedship"
)

// =============================================================================
// Test Utilities
// =============================================================================

// testLogger implements feedship.Logger for capturing log output in tests.
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func newTestLogger() *testLogger {
	return &testLogger{messages: make([]string, 0)}
}

func (l *testLogger) Debug(msg string, fields ...feedship.LogField) { l.log("DEBUG", msg) }
func (l *testLogger) Info(msg string, fields ...feedship.LogField)  { l.log("INFO", msg) }
func (l *testLogger) Warn(msg string, fields ...feedship.LogField)  { l.log("WARN", msg) }
func (l *testLogger) Error(msg string, fields ...feedship.LogField) { l.log("ERROR", msg) }

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("[%s] %s", level, msg))
}

func (l *testLogger) contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}

// sliceSource yields fixed records, then blocks until ctx ends if hold is set.
type sliceSource struct {
	mu      sync.Mutex
	records []feedship.RawRecord
	hold    bool
}

func newSliceSource(n int) *sliceSource {
	s := &sliceSource{}
	for i := 1; i <= n; i++ {
		s.records = append(s.records, feedship.RawRecord{
			"id":    fmt.Sprintf("%d", i),
			"title": fmt.Sprintf("Product %d", i),
		})
	}
	return s
}

func (s *sliceSource) Next(ctx context.Context) (feedship.RawRecord, error) {
	s.mu.Lock()
	if len(s.records) > 0 {
		r := s.records[0]
		s.records = s.records[1:]
		s.mu.Unlock()
		return r, nil
	}
	hold := s.hold
	s.mu.Unlock()

	if !hold {
		return nil, io.EOF
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// recordingSink counts payloads and fails while fail returns true.
type recordingSink struct {
	mu       sync.Mutex
	payloads []string
	fail     func(call int) bool
	calls    int
}

func (s *recordingSink) Deliver(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil && s.fail(s.calls) {
		return errors.New("sink unavailable")
	}
	s.payloads = append(s.payloads, string(payload))
	return nil
}

func (s *recordingSink) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.payloads...)
}

// instantClock returns immediately from Sleep and records the requested delays.
type instantClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return nil
}

// trackingPlugin tracks initialization and shutdown calls for testing.
type trackingPlugin struct {
	feedship.BasePlugin
	mu            sync.Mutex
	order         *[]string
	initError     error
	shutdownError error
	config        feedship.PluginConfig
}

func newTrackingPlugin(name string, order *[]string) *trackingPlugin {
	return &trackingPlugin{BasePlugin: feedship.NewBasePlugin(name), order: order}
}

func (p *trackingPlugin) Initialize(ctx context.Context, cfg feedship.PluginConfig) error {
	p.mu.Lock()
	p.config = cfg
	p.mu.Unlock()
	*p.order = append(*p.order, "init:"+p.Name())
	return p.initError
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	*p.order = append(*p.order, "shutdown:"+p.Name())
	return p.shutdownError
}

func testConfig() feedship.Config {
	cfg := feedship.DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.ShutdownTimeout = 5 * time.Second
	return cfg
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*feedship.Config)
	}{
		{"margin above max size", func(c *feedship.Config) { c.SafetyMargin = c.MaxBatchSize + 1 }},
		{"negative max size", func(c *feedship.Config) { c.MaxBatchSize = -1 }},
		{"negative retries", func(c *feedship.Config) { c.MaxRetries = -1 }},
		{"negative interval", func(c *feedship.Config) { c.SendInterval = -time.Second }},
		{"negative delay", func(c *feedship.Config) { c.RetryDelay = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := feedship.DefaultConfig()
			tt.modify(&cfg)
			_, err := feedship.New(cfg, newSliceSource(0), &recordingSink{})
			if !errors.Is(err, feedship.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew_NilSourceOrSink(t *testing.T) {
	if _, err := feedship.New(feedship.DefaultConfig(), nil, &recordingSink{}); !errors.Is(err, feedship.ErrInvalidConfig) {
		t.Errorf("nil source: error = %v, want ErrInvalidConfig", err)
	}
	if _, err := feedship.New(feedship.DefaultConfig(), newSliceSource(0), nil); !errors.Is(err, feedship.ErrInvalidConfig) {
		t.Errorf("nil sink: error = %v, want ErrInvalidConfig", err)
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	var cfg feedship.Config
	cfg.SetDefaults()
	if cfg != feedship.DefaultConfig() {
		t.Errorf("SetDefaults() = %+v, want %+v", cfg, feedship.DefaultConfig())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfig_RetryDelay(t *testing.T) {
	tests := []struct {
		name       string
		retryDelay time.Duration
		wantSleeps []time.Duration
	}{
		{"zero uses default", 0, []time.Duration{time.Second}},
		{"explicit delay", 250 * time.Millisecond, []time.Duration{250 * time.Millisecond}},
		{"no delay", feedship.NoRetryDelay, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &instantClock{}
			sink := &recordingSink{fail: func(call int) bool { return call == 1 }}

			f, err := feedship.New(feedship.Config{RetryDelay: tt.retryDelay}, newSliceSource(1), sink,
				feedship.WithClock(clock))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if _, err := f.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			var got []time.Duration
			for _, d := range clock.sleeps {
				if d > 0 {
					got = append(got, d)
				}
			}
			if len(got) != len(tt.wantSleeps) {
				t.Fatalf("sleeps = %v, want %v", got, tt.wantSleeps)
			}
			for i := range got {
				if got[i] != tt.wantSleeps[i] {
					t.Errorf("sleep[%d] = %v, want %v", i, got[i], tt.wantSleeps[i])
				}
			}
		})
	}
}

// =============================================================================
// Run
// =============================================================================

func TestRun_DeliversAllRecords(t *testing.T) {
	sink := &recordingSink{}
	f, err := feedship.New(testConfig(), newSliceSource(3), sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	summary, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := sink.delivered()
	if len(got) != 1 {
		t.Fatalf("delivered %d batches, want 1", len(got))
	}
	want := `[{"id":"1","title":"Product 1","description":""},{"id":"2","title":"Product 2","description":""},{"id":"3","title":"Product 3","description":""}]`
	if got[0] != want {
		t.Errorf("payload = %s, want %s", got[0], want)
	}
	if summary.Stats.RecordsSent != 3 || summary.Stats.BatchesSent != 1 {
		t.Errorf("Stats = %+v", summary.Stats)
	}
	if summary.State != feedship.StateStopped || !summary.State.IsTerminal() {
		t.Errorf("State = %v, want Stopped", summary.State)
	}
	if f.State() != feedship.StateStopped {
		t.Errorf("f.State() = %v, want Stopped", f.State())
	}
}

func TestRun_Twice(t *testing.T) {
	f, err := feedship.New(testConfig(), newSliceSource(1), &recordingSink{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := f.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if _, err := f.Run(context.Background()); !errors.Is(err, feedship.ErrAlreadyStopped) {
		t.Errorf("second Run() error = %v, want ErrAlreadyStopped", err)
	}
}

func TestRun_ExhaustedRetries(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2
	sink := &recordingSink{fail: func(int) bool { return true }}

	f, err := feedship.New(cfg, newSliceSource(2), sink, feedship.WithClock(&instantClock{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	summary, err := f.Run(context.Background())
	if !errors.Is(err, feedship.ErrExhaustedRetries) {
		t.Fatalf("Run() error = %v, want ErrExhaustedRetries", err)
	}
	if sink.calls != 2 {
		t.Errorf("sink called %d times, want 2", sink.calls)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("Failures = %d, want 1", len(summary.Failures))
	}
	if summary.Failures[0].Records != 2 {
		t.Errorf("failed batch records = %d, want 2", summary.Failures[0].Records)
	}
	if len(f.Failures()) != 1 {
		t.Errorf("f.Failures() = %d entries, want 1", len(f.Failures()))
	}
}

func TestStop_DrainsRunningInstance(t *testing.T) {
	src := newSliceSource(2)
	src.hold = true
	sink := &recordingSink{}

	f, err := feedship.New(testConfig(), src, sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := f.Run(context.Background())
		errCh <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.Stats().Processed < 2 {
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for records")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := f.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if len(sink.delivered()) != 1 {
		t.Errorf("delivered %d batches, want 1 partial batch", len(sink.delivered()))
	}
	if f.State() != feedship.StateStopped {
		t.Errorf("State() = %v, want Stopped", f.State())
	}
}

func TestStop_BeforeRun(t *testing.T) {
	sink := &recordingSink{}
	f, err := feedship.New(testConfig(), newSliceSource(3), sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	summary, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Stats.RecordsSent != 0 || len(sink.delivered()) != 0 {
		t.Errorf("nothing should be delivered after Stop, got %+v", summary.Stats)
	}
}

// =============================================================================
// Plugins
// =============================================================================

func TestPlugin_InitializationOrder(t *testing.T) {
	var order []string
	p1 := newTrackingPlugin("first", &order)
	p2 := newTrackingPlugin("second", &order)

	logger := newTestLogger()
	f, err := feedship.New(testConfig(), newSliceSource(1), &recordingSink{},
		feedship.WithLogger(logger),
		feedship.WithPlugin(p1),
		feedship.WithPlugin(p2),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"init:first", "init:second", "shutdown:second", "shutdown:first"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
	if !logger.contains("plugin initialized") || !logger.contains("plugin shutdown complete") {
		t.Error("expected plugin lifecycle log messages")
	}
}

func TestPlugin_InitializationFailure_PreventsRun(t *testing.T) {
	var order []string
	p1 := newTrackingPlugin("ok", &order)
	p2 := newTrackingPlugin("broken", &order)
	p2.initError = errors.New("init failed")

	sink := &recordingSink{}
	f, err := feedship.New(testConfig(), newSliceSource(2), sink,
		feedship.WithPlugin(p1),
		feedship.WithPlugin(p2),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := f.Run(context.Background()); !errors.Is(err, p2.initError) {
		t.Fatalf("Run() error = %v, want init failure", err)
	}
	if len(sink.delivered()) != 0 {
		t.Error("nothing should be delivered when a plugin fails")
	}

	want := []string{"init:ok", "init:broken", "shutdown:ok"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
	if err := f.Stop(); err != nil {
		t.Errorf("Stop() after failed Run error = %v", err)
	}
}

func TestPlugin_ShutdownFailure_ContinuesOtherPlugins(t *testing.T) {
	var order []string
	p1 := newTrackingPlugin("first", &order)
	p2 := newTrackingPlugin("second", &order)
	p2.shutdownError = errors.New("shutdown failed")

	logger := newTestLogger()
	f, err := feedship.New(testConfig(), newSliceSource(1), &recordingSink{},
		feedship.WithLogger(logger),
		feedship.WithPlugin(p1),
		feedship.WithPlugin(p2),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if order[len(order)-1] != "shutdown:first" {
		t.Errorf("order = %v, first plugin should still shut down", order)
	}
	if !logger.contains("plugin shutdown failed") {
		t.Error("expected shutdown failure to be logged")
	}
}

func TestPlugin_ReceivesConfig(t *testing.T) {
	var order []string
	p := newTrackingPlugin("cfg", &order)

	cfg := testConfig()
	cfg.ConfigPath = "/etc/feedship/config.toml"
	cfg.SendInterval = 2 * time.Second

	f, err := feedship.New(cfg, newSliceSource(1), &recordingSink{}, feedship.WithPlugin(p))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.config.ConfigPath != cfg.ConfigPath {
		t.Errorf("ConfigPath = %q, want %q", p.config.ConfigPath, cfg.ConfigPath)
	}
	if p.config.SendInterval != cfg.SendInterval {
		t.Errorf("SendInterval = %v, want %v", p.config.SendInterval, cfg.SendInterval)
	}
	if p.config.Logger == nil || p.config.SetSendInterval == nil {
		t.Error("Logger and SetSendInterval must be set")
	}
}

// =============================================================================
// Events
// =============================================================================

type recordingHandler struct {
	feedship.BaseEventHandler
	mu      sync.Mutex
	changes []feedship.StateChangeEvent
	sent    []feedship.SendSuccessEvent
	errs    []feedship.SendErrorEvent
}

func (h *recordingHandler) OnStateChange(e feedship.StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changes = append(h.changes, e)
}

func (h *recordingHandler) OnSendSuccess(e feedship.SendSuccessEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, e)
}

func (h *recordingHandler) OnSendError(e feedship.SendErrorEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, e)
}

func TestEventHandler_ReceivesEvents(t *testing.T) {
	handler := &recordingHandler{}
	sink := &recordingSink{fail: func(call int) bool { return call == 1 }}

	f, err := feedship.New(testConfig(), newSliceSource(2), sink,
		feedship.WithEventHandler(handler),
		feedship.WithClock(&instantClock{}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()

	if len(handler.errs) != 1 || !handler.errs[0].Retryable || handler.errs[0].RecordCount != 2 {
		t.Errorf("send errors = %+v, want one retryable error for 2 records", handler.errs)
	}
	if len(handler.sent) != 1 || handler.sent[0].RecordCount != 2 {
		t.Errorf("send successes = %+v, want one for 2 records", handler.sent)
	}
	if len(handler.changes) != 1 {
		t.Fatalf("state changes = %+v, want 1", handler.changes)
	}
	if c := handler.changes[0]; c.Previous != feedship.StateRunning || c.Current != feedship.StateStopped {
		t.Errorf("state change = %+v, want Running -> Stopped", c)
	}
}

// =============================================================================
// Defaults
// =============================================================================

func TestBasePlugin_DefaultBehavior(t *testing.T) {
	p := feedship.NewBasePlugin("base")
	if p.Name() != "base" {
		t.Errorf("Name() = %q, want base", p.Name())
	}
	if err := p.Initialize(context.Background(), feedship.PluginConfig{}); err != nil {
		t.Errorf("Initialize() error = %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestBaseEventHandler_DefaultBehavior(t *testing.T) {
	var h feedship.EventHandler = feedship.BaseEventHandler{}
	h.OnStateChange(feedship.StateChangeEvent{})
	h.OnSendSuccess(feedship.SendSuccessEvent{})
	h.OnSendError(feedship.SendErrorEvent{})
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state feedship.State
		want  string
	}{
		{feedship.StateRunning, "Running"},
		{feedship.StateDraining, "Draining"},
		{feedship.StateStopped, "Stopped"},
		{feedship.State(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
