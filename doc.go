// Package feedship delivers product records from a feed to a downstream sink
// in size-bounded batches.
//
// It can be used as a standalone CLI application (cmd/feedship) or embedded
// as a library in other Go programs.
//
// # Basic Usage
//
//	src := mySource{}                 // implements feedship.RecordSource
//	sink := feedship.SinkFunc(send)   // or any feedship.Sink
//
//	f, err := feedship.New(feedship.DefaultConfig(), src, sink)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, err := f.Run(ctx)
//
// Run blocks until the source is exhausted, [Feedship.Shutdown] is called or a
// batch exhausts its retries. Shutdown is graceful: the batch in flight
// completes, the partial batch is flushed, then Run returns.
//
// # Batching
//
// Records are packed into JSON arrays whose encoded size stays below
// MaxBatchSize - SafetyMargin. A single record that is larger than that on
// its own is sent as a batch of one.
//
// # Delivery
//
// Each batch is attempted up to MaxRetries times with exponential backoff
// (RetryDelay * 2^attempt). SendInterval enforces a minimum gap between
// successful sends and can be changed at runtime with [Feedship.SetSendInterval].
// A batch that exhausts its retries is recorded in the failure ledger
// returned with the [Summary].
//
// # Event Handling
//
// Implement [EventHandler] and pass it via [WithEventHandler] to observe state
// changes and sends. Events are called synchronously from the run goroutine.
//
// # Plugins
//
//	import "github.com/bft-labs/feedship/plugins/configwatcher"
//
//	f, err := feedship.New(cfg, src, sink,
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
//	)
package feedship
