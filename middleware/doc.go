// Package middleware adapts [goSession.Manager] to net/http.
//
// # Guards
//
//   - [Guard] admits requests whose bearer token or session cookie names a
//     live session and stores the [goSession.SessionInfo] in the context.
//   - [ClientMeta] records client address and user agent for audit events.
//
// Cookie helpers write and clear the session cookie using the manager's
// [goSession.CookieConfig].
//
// # Architecture boundaries
//
// Every decision is delegated to Manager.Validate. Rejections are a plain
// 401 that does not say which check failed.
package middleware
