package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/feedship"
	"github.com/bft-labs/feedship/internal/cliconfig"
)

// runner is the part of *feedship.Feedship the CLI drives.
type runner interface {
	Run(ctx context.Context) (feedship.Summary, error)
	Shutdown()
	WaitWithTimeout(timeout time.Duration) error
	Done() <-chan struct{}
}

// supervise runs r until it returns. The first signal starts a graceful
// drain; if Run has not returned within timeout, the run context is
// canceled, which aborts the send in flight, and ErrShutdownTimeout is
// returned.
func supervise(ctx context.Context, r runner, signals <-chan os.Signal, timeout time.Duration, log zerolog.Logger) (feedship.Summary, error) {
	g, ctx := errgroup.WithContext(ctx)

	var summary feedship.Summary
	g.Go(func() error {
		var err error
		summary, err = r.Run(ctx)
		return err
	})

	g.Go(func() error {
		select {
		case sig := <-signals:
			log.Info().Str("signal", sig.String()).Msg("received signal, draining")
			r.Shutdown()
			return r.WaitWithTimeout(timeout)
		case <-r.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	})

	err := g.Wait()
	return summary, err
}

// libConfig maps the CLI configuration onto the library's.
func libConfig(cfg cliconfig.Config, cfgFile string) feedship.Config {
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		// The library treats zero as unset.
		retryDelay = feedship.NoRetryDelay
	}
	return feedship.Config{
		MaxBatchSize:      cfg.MaxBatchSize,
		SafetyMargin:      cfg.SafetyMargin,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        retryDelay,
		RetryMaxDelay:     cfg.RetryMaxDelay,
		SendInterval:      cfg.SendInterval,
		ContinueOnFailure: cfg.ContinueOnFailure,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		ConfigPath:        cfgFile,
	}
}

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitCode maps the error returned by the root command to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, feedship.ErrInvalidConfig):
		return exitUsage
	default:
		return exitFailure
	}
}
