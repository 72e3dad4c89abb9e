// Package session provides session record persistence for the admin session core.
//
// # Backends
//
// [Store] is implemented by [MemoryStore] (process-local map with lazy and
// swept expiry) and [RedisStore] (one key per token with native TTL).
// [FallbackStore] decorates a primary backend with an in-process secondary
// and serves calls from the secondary while the primary is unreachable.
//
// # Tombstones
//
// A [Record] with Revoked set is a tombstone. Stores return tombstones from
// Get so callers can tell "revoked" apart from "never seen", but exclude them
// from Count and List.
//
// # Binary encoding
//
// Records crossing the Redis boundary use a compact fixed-field binary format
// ([Encode], [Decode]) prefixed with a format version byte.
//
// # Architecture boundaries
//
// This package owns the [Record] model and its storage. It does NOT parse or
// sign tokens and does not decide whether a session is authorized; those
// responsibilities belong to the Manager in the root package.
//
// # What this package must NOT do
//
//   - Import goSession, token, or password (no upward imports).
//   - Hand out references to stored state; every read returns a copy.
//   - Return an error from Delete when the key is already gone.
package session
