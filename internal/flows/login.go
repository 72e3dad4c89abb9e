package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidCredentials
	LoginFailureRateLimited
	LoginFailureInternal
)

// LoginResult carries the minted token or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Token   string
	Record  session.Record
}

// LoginThrottle is the optional failed-attempt limiter.
type LoginThrottle interface {
	CheckLogin(ctx context.Context, username string) error
	IncrementLogin(ctx context.Context, username string) error
	ResetLogin(ctx context.Context, username string) error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Common
	Verify      func(username, password string) bool
	EncodeToken func(principal string, issuedAt time.Time) (string, error)
	// Throttle may be nil.
	Throttle LoginThrottle
	// RateLimited is the throttle's "over budget" sentinel; any other
	// throttle error fails open.
	RateLimited error
}

// RunLogin verifies credentials and, on success, mints a token and stores
// its record with ttl = SessionTimeout. Nothing is written on failure.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) LoginResult {
	if deps.Throttle != nil {
		if err := deps.Throttle.CheckLogin(ctx, username); err != nil {
			if errors.Is(err, deps.RateLimited) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err}
			}
			deps.Logger.WithError(err).Warn("login throttle unavailable, continuing without it")
		}
	}

	if !deps.Verify(username, password) {
		if deps.Throttle != nil {
			if err := deps.Throttle.IncrementLogin(ctx, username); err != nil {
				if errors.Is(err, deps.RateLimited) {
					return LoginResult{Failure: LoginFailureRateLimited, Err: err}
				}
				deps.Logger.WithError(err).Warn("login throttle unavailable, failure not counted")
			}
		}
		return LoginResult{Failure: LoginFailureInvalidCredentials}
	}

	if deps.Throttle != nil {
		if err := deps.Throttle.ResetLogin(ctx, username); err != nil {
			deps.Logger.WithError(err).Warn("login throttle reset failed")
		}
	}

	now := deps.now()
	tok, err := deps.EncodeToken(username, now)
	if err != nil {
		return LoginResult{Failure: LoginFailureInternal, Err: fmt.Errorf("encode token: %w", err)}
	}

	rec := session.NewRecord(username, now, deps.SessionTimeout)
	if err := deps.Store.Put(ctx, tok, rec, deps.SessionTimeout); err != nil {
		return LoginResult{Failure: LoginFailureInternal, Err: fmt.Errorf("store session: %w", err)}
	}

	return LoginResult{Token: tok, Record: rec}
}
