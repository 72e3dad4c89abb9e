// Package rate provides the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefix:
//   - asl: failed admin logins per username
//
// A username is blocked once its counter reaches the configured maximum and
// stays blocked until the window expires or a successful login resets it.
//
// # What this package must NOT do
//
//   - Decide whether Redis errors block logins (the caller fails open).
//   - Be imported outside the goSession module.
package rate
