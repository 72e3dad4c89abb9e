package session

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultHealthTTL is how long a failed primary is bypassed before it is probed again.
	DefaultHealthTTL = 2 * time.Second
	// DefaultOpTimeout bounds a single primary call.
	DefaultOpTimeout = 2 * time.Second
)

// FallbackConfig tunes [FallbackStore].
type FallbackConfig struct {
	// OpTimeout bounds each primary call. Zero uses DefaultOpTimeout.
	OpTimeout time.Duration
	// HealthTTL is how long the primary is skipped after a failure.
	// Negative disables the health window so every call probes the primary.
	HealthTTL time.Duration
	// OnFallback, when set, is called every time a call is served by the
	// secondary because the primary failed.
	OnFallback func(op string, err error)
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

// FallbackStore routes calls to a primary [Store] and substitutes the
// in-process secondary when the primary reports [ErrUnavailable].
//
// The decision is made per call. A failure only opens a short health window
// during which the primary is not probed; once it lapses the next call tries
// the primary again, so the store recovers on its own. Records written to the
// secondary during an outage stay readable after recovery because Get
// consults the secondary on a primary miss, and a tombstone held only by the
// secondary shadows the primary's live record. Delete always clears the
// secondary and clears the primary whenever it is reachable.
type FallbackStore struct {
	primary   Store
	secondary *MemoryStore

	opTimeout  time.Duration
	healthTTL  time.Duration
	onFallback func(op string, err error)
	logger     logrus.FieldLogger
	now        func() time.Time

	unhealthyUntil atomic.Int64
}

// NewFallbackStore creates a [FallbackStore]. A nil secondary gets a fresh [MemoryStore].
func NewFallbackStore(primary Store, secondary *MemoryStore, cfg FallbackConfig) *FallbackStore {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if secondary == nil {
		secondary = NewMemoryStore(cfg.Now)
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}
	if cfg.HealthTTL == 0 {
		cfg.HealthTTL = DefaultHealthTTL
	}
	if cfg.HealthTTL < 0 {
		cfg.HealthTTL = 0
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}

	return &FallbackStore{
		primary:    primary,
		secondary:  secondary,
		opTimeout:  cfg.OpTimeout,
		healthTTL:  cfg.HealthTTL,
		onFallback: cfg.OnFallback,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// Healthy reports whether the next call will be attempted on the primary.
func (f *FallbackStore) Healthy() bool {
	return f.now().UnixNano() >= f.unhealthyUntil.Load()
}

func (f *FallbackStore) markUnhealthy(op string, err error) {
	f.unhealthyUntil.Store(f.now().Add(f.healthTTL).UnixNano())
	f.logger.WithError(err).WithField("op", op).Warn("session store unavailable, serving from in-process fallback")
	if f.onFallback != nil {
		f.onFallback(op, err)
	}
}

func (f *FallbackStore) callPrimary(ctx context.Context, op string, fn func(context.Context) error) bool {
	if !f.Healthy() {
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, f.opTimeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return true
	}
	if errors.Is(err, ErrUnavailable) {
		f.markUnhealthy(op, err)
		return false
	}
	// Non-availability errors (corrupt blobs, encode failures) are the
	// primary's answer; fn keeps them for the caller.
	return true
}

func (f *FallbackStore) Put(ctx context.Context, token string, rec Record, ttl time.Duration) error {
	var err error
	if f.callPrimary(ctx, "put", func(ctx context.Context) error {
		err = f.primary.Put(ctx, token, rec, ttl)
		return err
	}) {
		return err
	}
	return f.secondary.Put(ctx, token, rec, ttl)
}

func (f *FallbackStore) Get(ctx context.Context, token string) (Record, bool, error) {
	var (
		rec   Record
		found bool
		err   error
	)
	if f.callPrimary(ctx, "get", func(ctx context.Context) error {
		rec, found, err = f.primary.Get(ctx, token)
		return err
	}) {
		if err != nil {
			return rec, found, err
		}
		if found {
			// A tombstone written to the secondary during an outage outranks
			// a live record the primary still holds.
			if local, ok, _ := f.secondary.Get(ctx, token); ok && local.Revoked && !rec.Revoked {
				return local, true, nil
			}
			return rec, true, nil
		}
	}
	return f.secondary.Get(ctx, token)
}

func (f *FallbackStore) Delete(ctx context.Context, token string) (bool, error) {
	local, _ := f.secondary.Delete(ctx, token)

	var (
		remote bool
		err    error
	)
	if f.callPrimary(ctx, "delete", func(ctx context.Context) error {
		remote, err = f.primary.Delete(ctx, token)
		return err
	}) && err != nil {
		return local, err
	}
	return local || remote, nil
}

func (f *FallbackStore) SweepExpired(ctx context.Context) (int, error) {
	removed, _ := f.secondary.SweepExpired(ctx)

	var (
		n   int
		err error
	)
	if f.callPrimary(ctx, "sweep", func(ctx context.Context) error {
		n, err = f.primary.SweepExpired(ctx)
		return err
	}) && err == nil {
		removed += n
	}
	return removed, nil
}

// Count is the length of [FallbackStore.List].
func (f *FallbackStore) Count(ctx context.Context) (int, error) {
	entries, err := f.merge(ctx, "count")
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// List merges both backends. A token present in both is reported once with
// the primary's record, and a token either backend holds as revoked is not
// reported at all.
func (f *FallbackStore) List(ctx context.Context) ([]Entry, error) {
	return f.merge(ctx, "list")
}

// allLister is implemented by stores that can enumerate tombstones.
type allLister interface {
	listAll(ctx context.Context) ([]Entry, error)
}

func listWithTombstones(ctx context.Context, s Store) ([]Entry, error) {
	if l, ok := s.(allLister); ok {
		return l.listAll(ctx)
	}
	return s.List(ctx)
}

func (f *FallbackStore) merge(ctx context.Context, op string) ([]Entry, error) {
	var (
		remote []Entry
		err    error
	)
	f.callPrimary(ctx, op, func(ctx context.Context) error {
		remote, err = listWithTombstones(ctx, f.primary)
		return err
	})
	if err != nil && !errors.Is(err, ErrUnavailable) {
		return nil, err
	}

	local, _ := f.secondary.listAll(ctx)

	revoked := make(map[string]struct{})
	seen := make(map[string]struct{}, len(remote))
	out := make([]Entry, 0, len(remote)+len(local))
	for _, e := range remote {
		seen[e.Token] = struct{}{}
		if e.Record.Revoked {
			revoked[e.Token] = struct{}{}
			continue
		}
		out = append(out, e)
	}
	for _, e := range local {
		if e.Record.Revoked {
			revoked[e.Token] = struct{}{}
			continue
		}
		if _, dup := seen[e.Token]; dup {
			continue
		}
		out = append(out, e)
	}
	if len(revoked) == 0 {
		return out, nil
	}

	live := out[:0]
	for _, e := range out {
		if _, gone := revoked[e.Token]; !gone {
			live = append(live, e)
		}
	}
	return live, nil
}
