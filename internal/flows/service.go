package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// Service is the centralized flow runner built once by the Manager.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Verify != nil && s.deps.Validate.DecodeToken != nil
}

func (s Service) Login(ctx context.Context, username, password string) LoginResult {
	return RunLogin(ctx, username, password, s.deps.Login)
}

func (s Service) Validate(ctx context.Context, token string) ValidateResult {
	return RunValidate(ctx, token, s.deps.Validate)
}

func (s Service) Lookup(ctx context.Context, token string) ValidateResult {
	return RunLookup(ctx, token, s.deps.Validate)
}

func (s Service) Refresh(ctx context.Context, token string) RefreshResult {
	return RunRefresh(ctx, token, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, token string) LogoutResult {
	return RunLogout(ctx, token, s.deps.Logout)
}

func (s Service) ListActive(ctx context.Context) ([]session.Entry, error) {
	return RunListActive(ctx, s.deps.Admin)
}

func (s Service) Terminate(ctx context.Context, match func(session.Record) bool) (int, error) {
	return RunTerminate(ctx, match, s.deps.Admin)
}

func (s Service) Sweep(ctx context.Context) (int, error) {
	return RunSweep(ctx, s.deps.Admin)
}

func (s Service) Count(ctx context.Context) (int, error) {
	return RunCount(ctx, s.deps.Admin)
}
