package goSession

import (
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/session"
)

// SessionInfo is the caller-facing view of a live session.
type SessionInfo struct {
	Principal string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Remaining is the lifetime left at the moment the info was produced.
	Remaining time.Duration
}

func newSessionInfo(rec session.Record, now time.Time) SessionInfo {
	return SessionInfo{
		Principal: rec.Principal,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
		Remaining: rec.Remaining(now),
	}
}

// LoginResult is returned by Manager.Login. Message is safe to show to the
// client; it never reveals which credential was wrong.
type LoginResult struct {
	Success   bool
	Message   string
	Token     string
	ExpiresAt time.Time
}

// LogoutResult is returned by Manager.Logout.
type LogoutResult struct {
	Success bool
	Message string
}

const (
	msgLoginSuccess       = "login successful"
	msgInvalidCredentials = "invalid credentials"
	msgRateLimited        = "too many failed attempts, try again later"
	msgLogoutSuccess      = "logout successful"
	msgSessionNotFound    = "session not found"
)

// AuditEvent is the structured record emitted for every session lifecycle event.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the asynchronous dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel for the caller to drain.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON document per audit event.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink writes audit events through a logrus logger.
type LogSink = internalaudit.LogSink

// NewChannelSink returns a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
