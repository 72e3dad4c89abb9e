package flows

import (
	"context"
	"sort"

	"github.com/MrEthical07/goSession/session"
)

// AdminDeps captures the session-management operations.
type AdminDeps struct {
	Common
}

// RunListActive returns every live session ordered by issue time, oldest first.
func RunListActive(ctx context.Context, deps AdminDeps) ([]session.Entry, error) {
	entries, err := deps.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := deps.now()
	live := entries[:0]
	for _, e := range entries {
		if e.Record.Live(now) {
			live = append(live, e)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].Record.IssuedAt.Before(live[j].Record.IssuedAt)
	})
	return live, nil
}

// RunTerminate revokes every live session accepted by match (all sessions
// when match is nil) and returns how many were revoked. It stops at the
// first store error, reporting the count revoked so far.
func RunTerminate(ctx context.Context, match func(session.Record) bool, deps AdminDeps) (int, error) {
	entries, err := RunListActive(ctx, deps)
	if err != nil {
		return 0, err
	}

	now := deps.now()
	revoked := 0
	for _, e := range entries {
		if match != nil && !match(e.Record) {
			continue
		}
		if err := deps.revoke(ctx, e.Token, e.Record, now); err != nil {
			return revoked, err
		}
		revoked++
	}
	return revoked, nil
}

// RunSweep physically removes expired records.
func RunSweep(ctx context.Context, deps AdminDeps) (int, error) {
	return deps.Store.SweepExpired(ctx)
}

// RunCount returns the number of live sessions.
func RunCount(ctx context.Context, deps AdminDeps) (int, error) {
	return deps.Store.Count(ctx)
}
