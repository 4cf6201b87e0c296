package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/bft-labs/feedship"
	httpAdapter "github.com/bft-labs/feedship/internal/adapters/http"
	"github.com/bft-labs/feedship/internal/adapters/kafka"
	"github.com/bft-labs/feedship/internal/adapters/stream"
	"github.com/bft-labs/feedship/internal/cliconfig"
)

// kafkaHeadroom covers the record key and headers on top of the payload.
const kafkaHeadroom = 4 << 10

// buildSink creates the sink selected by cfg.Sink. The returned close func is
// never nil.
func buildSink(cfg cliconfig.Config) (feedship.Sink, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Sink {
	case "http":
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		return httpAdapter.NewSink(client, httpAdapter.Config{
			URL:      cfg.SinkURL,
			AuthKey:  cfg.AuthKey,
			Hostname: hostname(),
		}), noop, nil

	case "kafka":
		sink, err := kafka.NewSink(kafka.Config{
			Brokers:         cfg.KafkaBrokers,
			Topic:           cfg.KafkaTopic,
			MaxMessageBytes: int64(cfg.MaxBatchSize) + kafkaHeadroom,
			WriteTimeout:    cfg.HTTPTimeout,
		})
		if err != nil {
			return nil, noop, err
		}
		return sink, sink.Close, nil

	case "stdout":
		return stream.NewSink(os.Stdout), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
