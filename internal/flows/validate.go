package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
// Every kind other than Internal surfaces to callers as "no session".
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureRevoked
	ValidateFailureExpired
	ValidateFailureInvalidSignature
	ValidateFailureInternal
)

// ValidateResult carries the live record or failure metadata.
type ValidateResult struct {
	Failure    ValidateFailureKind
	Err        error
	Record     session.Record
	Readmitted bool
}

// ValidateDeps captures validation dependencies.
type ValidateDeps struct {
	Common
	DecodeToken func(raw string, maxAge time.Duration) (string, time.Time, error)
	// ErrExpired is the codec's expiry sentinel; any other decode error is
	// treated as an untrusted token.
	ErrExpired error
}

// RunValidate resolves token against the store first. A stored tombstone or
// expired record wins over the codec. Only on a store miss is the token
// decoded; a token that verifies is re-admitted with its remaining lifetime.
func RunValidate(ctx context.Context, token string, deps ValidateDeps) ValidateResult {
	if token == "" {
		return ValidateResult{Failure: ValidateFailureMissing}
	}

	now := deps.now()

	rec, found, err := deps.Store.Get(ctx, token)
	switch {
	case errors.Is(err, session.ErrCorruptRecord):
		deps.Logger.WithError(err).Error("stored session record is corrupt; falling back to token verification")
		found = false
	case err != nil:
		return ValidateResult{Failure: ValidateFailureInternal, Err: err}
	}

	if found {
		if rec.Revoked {
			return ValidateResult{Failure: ValidateFailureRevoked}
		}
		if rec.Expired(now) {
			if _, err := deps.Store.Delete(ctx, token); err != nil {
				deps.Logger.WithError(err).Warn("failed to delete expired session")
			}
			return ValidateResult{Failure: ValidateFailureExpired}
		}
		return ValidateResult{Record: rec}
	}

	principal, issuedAt, err := deps.DecodeToken(token, deps.SessionTimeout)
	if err != nil {
		if deps.ErrExpired != nil && errors.Is(err, deps.ErrExpired) {
			return ValidateResult{Failure: ValidateFailureExpired}
		}
		deps.Logger.Debug("rejected token that failed verification")
		return ValidateResult{Failure: ValidateFailureInvalidSignature}
	}

	rec = session.NewRecord(principal, issuedAt, deps.SessionTimeout)
	if err := deps.Store.Put(ctx, token, rec, rec.Remaining(now)); err != nil {
		deps.Logger.WithError(err).Error("failed to re-admit verified session")
	}

	return ValidateResult{Record: rec, Readmitted: true}
}

// RunLookup resolves token against the store only. Unlike RunValidate it
// never consults the codec and never re-admits a session.
func RunLookup(ctx context.Context, token string, deps ValidateDeps) ValidateResult {
	rec, err := lookupLive(ctx, token, deps.now(), deps.Common)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureInternal, Err: err}
	}
	if rec == nil {
		return ValidateResult{Failure: ValidateFailureMissing}
	}
	return ValidateResult{Record: *rec}
}
