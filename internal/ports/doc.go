// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [RecordSource]: Yields raw feed items one at a time
//   - [Backpressure]: Optional pause/resume capability of a record source
//   - [Sink]: Receives one serialized group per call
//   - [Clock]: Time source used for backoff and rate limiting
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (XML feeds, HTTP, Kafka, zerolog, etc.).
package ports
