package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSystem_Sleep(t *testing.T) {
	c := New()
	start := c.Now()

	if err := c.Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("slept %v, want >= 20ms", elapsed)
	}
}

func TestSystem_Sleep_Canceled(t *testing.T) {
	c := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Sleep(ctx, time.Minute)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Sleep() error = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Sleep ignored cancellation")
	}
}

func TestSystem_Sleep_Zero(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	if err := New().Sleep(ctx, 0); err != nil {
		t.Errorf("Sleep(0) error = %v", err)
	}
	cancel()
	if err := New().Sleep(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep(0) after cancel = %v, want Canceled", err)
	}
}
