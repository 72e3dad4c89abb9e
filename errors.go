package goSession

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for any username or password
	// mismatch. It never says which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is returned by Login while the username's failed
	// attempt budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSessionNotFound means the token has no live session: never issued,
	// logged out, rotated away, expired, or forged.
	ErrSessionNotFound = errors.New("session not found")
	// ErrManagerNotReady is returned when a Manager was not built through [Builder.Build].
	ErrManagerNotReady = errors.New("manager not initialized")
)
