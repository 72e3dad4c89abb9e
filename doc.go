// Package goSession provides the administrative session core: credential
// verification, signed session tokens, and a session store that can run
// in-process or on Redis with automatic in-process fallback.
//
// The package is designed for concurrent server workloads: [Manager] methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Token validity
//
// A token is valid while the store holds a live record under it, or, when the
// store has no entry at all, while its signature verifies and it is younger
// than SessionTimeout. Logout, Refresh and TerminateAll write a revocation
// tombstone that outranks the signature check for as long as the token could
// still verify.
//
// When Redis is unreachable the in-process fallback only knows about
// revocations made by this process. A token revoked on another instance
// during an outage, or a token presented after every store has forgotten
// it, is honored again until it ages out.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Builder], [Config], and value types
// (SessionInfo, LoginResult, MetricsSnapshot). All internal coordination, meaning flow
// orchestration, rate limiting and audit dispatch, lives under internal/ and is never
// exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Perform I/O outside of Manager methods and Build.
//   - Import any sub-package that re-imports goSession (no import cycles).
package goSession
