// Package flows contains pure-function orchestrators for every Manager operation.
//
// Each flow function (RunLogin, RunValidate, RunRefresh, etc.) accepts a typed
// dependency struct and returns a classified result without side-effects
// beyond those dependencies. The Manager maps results onto public errors,
// metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, token codec,
// credential verifier and login throttle. They do NOT own any of these
// resources; ownership stays with the Manager.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
