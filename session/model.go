package session

import "time"

// Record is the server-side metadata held for one session token.
//
// Record is a value type: stores keep their own copy on write and return a
// fresh copy on read, so callers may modify a Record freely.
type Record struct {
	Principal string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Revoked marks a tombstone: the token was logged out, rotated or
	// terminated and must not be honored again, even if its signature would
	// still verify. Tombstones live until ExpiresAt and are not live sessions.
	Revoked bool
}

// NewRecord builds the record for a session issued at issuedAt that lives for timeout.
func NewRecord(principal string, issuedAt time.Time, timeout time.Duration) Record {
	return Record{
		Principal: principal,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(timeout),
	}
}

// Expired reports whether the record is logically dead at now.
// A record expires at the instant ExpiresAt is reached.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Live reports whether the record is an unexpired, unrevoked session at now.
func (r Record) Live(now time.Time) bool {
	return !r.Revoked && !r.Expired(now)
}

// Revoke returns a tombstone copy of r.
func (r Record) Revoke() Record {
	r.Revoked = true
	return r
}

// Remaining returns the lifetime left at now, never negative.
func (r Record) Remaining(now time.Time) time.Duration {
	d := r.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Entry pairs a token with its record for enumeration.
type Entry struct {
	Token  string
	Record Record
}

func liveOnly(entries []Entry) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if !e.Record.Revoked {
			out = append(out, e)
		}
	}
	return out
}
