package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/session"
)

// LogoutFailureKind classifies logout failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureNotFound
	LogoutFailureInternal
)

// LogoutResult reports the revoked record or failure metadata.
type LogoutResult struct {
	Failure LogoutFailureKind
	Err     error
	Record  session.Record
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Common
}

// RunLogout revokes the live session stored under token.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) LogoutResult {
	now := deps.now()

	rec, err := lookupLive(ctx, token, now, deps.Common)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureInternal, Err: err}
	}
	if rec == nil {
		return LogoutResult{Failure: LogoutFailureNotFound}
	}

	if err := deps.revoke(ctx, token, *rec, now); err != nil {
		return LogoutResult{Failure: LogoutFailureInternal, Err: fmt.Errorf("revoke session: %w", err)}
	}
	return LogoutResult{Record: *rec}
}
