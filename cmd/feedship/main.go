package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/feedship"
	"github.com/bft-labs/feedship/internal/adapters/feed"
	logAdapter "github.com/bft-labs/feedship/internal/adapters/log"
	"github.com/bft-labs/feedship/internal/cliconfig"
	"github.com/bft-labs/feedship/plugins/configwatcher"
)

const helpDescription = `
Ship a product feed to a downstream service in size-bounded JSON batches.

Highlights:
  - Reads XML (RSS, Atom, Google Merchant) or JSON-lines feeds, from a file or stdin.
  - Packs records into JSON arrays that stay under --max-batch-size.
  - Retries failed batches with exponential backoff and records the ones that give up.
  - Delivers over HTTP, to a Kafka topic, or to stdout for dry runs.
  - Drains the batch in progress on SIGINT/SIGTERM.
`

var exampleUsage = strings.TrimSpace(`
  feedship --feed products.xml --sink-url https://ingest.example.com/v1/products --auth-key <key>
  feedship --feed - --format jsonl --sink stdout < products.jsonl
  feedship --feed products.xml --sink kafka --kafka-brokers localhost:9092 --kafka-topic products
  feedship --config $HOME/.feedship/config.toml --watch-config
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := logAdapter.NewConsole().Logger()

	root := &cobra.Command{
		Use:           "feedship",
		Short:         "Ship a product feed to a downstream service in size-bounded batches",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			loadedFrom := ""
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				loadedFrom = cfgFile
			}

			// FEEDSHIP_* overrides the file but not explicit flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logAdapter.NewZerolog(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			log = logger.Logger()
			log.Info().Interface("config", cfg.Masked()).Str("file", loadedFrom).Msg("configuration")

			return run(cfg, loadedFrom, logger)
		},
	}

	// Flags
	flags := root.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.feedship/config.toml)")
	flags.StringVar(&cfg.Feed, "feed", cfg.Feed, "feed file to read, - for stdin")
	flags.StringVar(&cfg.Format, "format", cfg.Format, "feed format: xml or jsonl")
	flags.StringVar(&cfg.ItemElement, "item-element", cfg.ItemElement, "XML element holding one record (item, entry)")

	flags.StringVar(&cfg.Sink, "sink", cfg.Sink, "delivery target: http, kafka or stdout")
	flags.StringVar(&cfg.SinkURL, "sink-url", cfg.SinkURL, "URL receiving one POST per batch")
	flags.StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "bearer token sent to the sink")
	flags.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "timeout of a single delivery request")
	flags.StringSliceVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Kafka bootstrap brokers (host:port)")
	flags.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic receiving one message per batch")

	flags.IntVar(&cfg.MaxBatchSize, "max-batch-size", cfg.MaxBatchSize, "maximum encoded bytes per batch")
	flags.IntVar(&cfg.SafetyMargin, "safety-margin", cfg.SafetyMargin, "bytes kept free below max-batch-size")
	flags.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "delivery attempts per batch")
	flags.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "base delay of the exponential backoff")
	flags.DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "cap on a single backoff delay (0 = none)")
	flags.DurationVar(&cfg.SendInterval, "send-interval", cfg.SendInterval, "minimum time between sends (0 = unlimited)")
	flags.BoolVar(&cfg.ContinueOnFailure, "continue-on-failure", cfg.ContinueOnFailure, "keep going after a batch exhausts its retries")

	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time allowed to drain after a signal")
	flags.BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload send_interval when the config file changes")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace, debug, info, warn, error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("feedship")
		os.Exit(exitCode(err))
	}
}

// run wires the source, sink and feedship instance and blocks until the run
// ends. A signal starts a graceful drain bounded by cfg.ShutdownTimeout.
func run(cfg cliconfig.Config, cfgFile string, logger *logAdapter.ZerologAdapter) error {
	log := logger.Logger()

	src, err := feed.Open(cfg.Feed, cfg.Format, cfg.ItemElement)
	if err != nil {
		return err
	}
	defer src.Close()

	sink, closeSink, err := buildSink(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			log.Warn().Err(err).Msg("close sink")
		}
	}()

	opts := []feedship.Option{feedship.WithLogger(logger)}
	if cfg.WatchConfig {
		opts = append(opts, configwatcher.WithDefaultConfigWatcher())
	}

	f, err := feedship.New(libConfig(cfg, cfgFile), src, sink, opts...)
	if err != nil {
		return fmt.Errorf("create feedship: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	summary, err := supervise(context.Background(), f, sigCh, cfg.ShutdownTimeout, log)
	report(log, summary)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, feedship.ErrShutdownTimeout):
		return err
	default:
		return fmt.Errorf("run: %w", err)
	}
}
