// Package internal holds helpers that are private to goSession.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - config: daemon configuration loading from YAML and the environment
//   - flows: flow orchestrators for every Manager operation
//   - httpapi: chi router exposing the admin session endpoints
//   - logger: logrus construction from format and level strings
//   - rate: Redis-backed failed-login throttle
//
// Nothing here appears in the public goSession API.
package internal
