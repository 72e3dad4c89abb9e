package middleware

import (
	"context"
	"net"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// ClientMeta attaches the caller's address and user agent to the request
// context so audit events can carry them. Guard does this on its own; use
// ClientMeta on routes Guard does not cover, such as login.
func ClientMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(withClient(r.Context(), r)))
	})
}

func withClient(ctx context.Context, r *http.Request) context.Context {
	ctx = goSession.WithClientIP(ctx, remoteIP(r.RemoteAddr))
	return goSession.WithUserAgent(ctx, r.UserAgent())
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
