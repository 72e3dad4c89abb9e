package goSession

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLoginRateLimited  = "login_rate_limited"
	auditEventSessionReadmitted = "session_readmitted"
	auditEventRefreshSuccess    = "refresh_success"
	auditEventRefreshNotFound   = "refresh_not_found"
	auditEventLogoutSession     = "logout_session"
	auditEventLogoutNotFound    = "logout_not_found"
	auditEventTerminated        = "sessions_terminated"
	auditEventSwept             = "sessions_swept"
	auditEventStoreFallback     = "store_fallback"
)

// sessionRef returns a short, non-reversible fingerprint of a token for logs
// and audit events.
func sessionRef(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

func (m *Manager) emitAudit(ctx context.Context, eventType, principal, token string, success bool, failure string, metadata map[string]string) {
	if m == nil || m.audit == nil {
		return
	}

	if ip := clientIPFromContext(ctx); ip != "" {
		if metadata == nil {
			metadata = make(map[string]string, 2)
		}
		metadata["ip"] = ip
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	m.audit.Emit(ctx, AuditEvent{
		ID:         uuid.NewString(),
		Timestamp:  m.now(),
		EventType:  eventType,
		Principal:  principal,
		SessionRef: sessionRef(token),
		Success:    success,
		Error:      failure,
		Metadata:   metadata,
	})
}
