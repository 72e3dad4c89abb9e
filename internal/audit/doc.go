// Package audit implements async event dispatching for session lifecycle operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, logger, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full
//     semantics and a Close bounded by DrainTimeout.
//   - [Event]: structured audit record with id, timestamp, type, principal and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that responsibility belongs to the Manager.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goSession or any sibling internal package.
//   - Carry raw session tokens in events.
package audit
