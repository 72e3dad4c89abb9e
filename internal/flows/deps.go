package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/sirupsen/logrus"
)

// Deps groups flow dependency sets. The Manager builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Validate ValidateDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
	Admin    AdminDeps
}

// Common carries what every flow needs.
type Common struct {
	Store          session.Store
	Now            func() time.Time
	SessionTimeout time.Duration
	Logger         logrus.FieldLogger
}

// now returns the flow clock truncated to the millisecond precision that
// tokens and encoded records carry, so all three agree on expiry.
func (c Common) now() time.Time {
	return c.Now().Truncate(time.Millisecond)
}

// revoke overwrites token with a tombstone that lives as long as the
// token itself could still verify.
func (c Common) revoke(ctx context.Context, token string, rec session.Record, now time.Time) error {
	return c.Store.Put(ctx, token, rec.Revoke(), rec.Remaining(now))
}
