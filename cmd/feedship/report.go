package main

import (
	"github.com/rs/zerolog"

	"github.com/bft-labs/feedship"
)

// report logs the run summary and every ledger entry.
func report(log zerolog.Logger, summary feedship.Summary) {
	s := summary.Stats
	log.Info().
		Str("state", summary.State.String()).
		Int("processed", s.Processed).
		Int("skipped", s.Skipped).
		Int("ignored", s.Ignored).
		Int("batches_sent", s.BatchesSent).
		Int("records_sent", s.RecordsSent).
		Int64("bytes_sent", s.BytesSent).
		Int("failures", s.Failures).
		Msg("run complete")

	for _, f := range summary.Failures {
		log.Error().
			Uint64("batch", f.Sequence).
			Int("records", f.Records).
			Int("bytes", f.Bytes).
			Time("at", f.At).
			Str("error", f.Err).
			Msg("undelivered batch")
	}
}
