package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNotFound
	RefreshFailureInternal
)

// RefreshResult carries the rotated token or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Token   string
	Record  session.Record
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	Common
	EncodeToken func(principal string, issuedAt time.Time) (string, error)
}

// RunRefresh rotates a live session onto a new token. The new record is
// written before the old token is revoked, so the session is never
// unavailable; concurrent refreshes of one token may each mint a token.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) RefreshResult {
	now := deps.now()

	rec, err := lookupLive(ctx, token, now, deps.Common)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureInternal, Err: err}
	}
	if rec == nil {
		return RefreshResult{Failure: RefreshFailureNotFound}
	}

	next, err := deps.EncodeToken(rec.Principal, now)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureInternal, Err: fmt.Errorf("encode token: %w", err)}
	}

	nextRec := session.NewRecord(rec.Principal, now, deps.SessionTimeout)
	if err := deps.Store.Put(ctx, next, nextRec, deps.SessionTimeout); err != nil {
		return RefreshResult{Failure: RefreshFailureInternal, Err: fmt.Errorf("store session: %w", err)}
	}

	if err := deps.revoke(ctx, token, *rec, now); err != nil {
		deps.Logger.WithError(err).Error("refreshed session but failed to revoke previous token")
	}

	return RefreshResult{Token: next, Record: nextRec}
}

// lookupLive returns the live record stored under token, or nil. Expired
// records found along the way are deleted. A corrupt record reads as absent.
func lookupLive(ctx context.Context, token string, now time.Time, c Common) (*session.Record, error) {
	if token == "" {
		return nil, nil
	}
	rec, found, err := c.Store.Get(ctx, token)
	if errors.Is(err, session.ErrCorruptRecord) {
		c.Logger.WithError(err).Error("stored session record is corrupt; treating as absent")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !found || rec.Revoked {
		return nil, nil
	}
	if rec.Expired(now) {
		if _, err := c.Store.Delete(ctx, token); err != nil {
			c.Logger.WithError(err).Warn("failed to delete expired session")
		}
		return nil, nil
	}
	return &rec, nil
}
