// Package domain contains the core domain entities and value objects for feedship.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Record]: A product entry extracted from a raw feed item (id, title, description)
//   - [Group]: An ordered, byte-bounded set of records delivered in one sink call
//   - [FailureRecord]: A group that exhausted all delivery retries
//   - [ErrorLedger]: The append-only list of failure records for one run
//
// # Wire format
//
// A group is serialized as a JSON array of {"id","title","description"} objects.
// [Estimate] and [Group.Payload] share the same element encoding, so the size
// computed before appending a record is exactly the size of the bytes that
// reach the sink.
package domain
