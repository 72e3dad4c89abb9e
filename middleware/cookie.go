package middleware

import (
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// SetSessionCookie writes token as an HttpOnly cookie that lives as long as
// the session.
func SetSessionCookie(w http.ResponseWriter, manager *goSession.Manager, token string, expiresAt time.Time) {
	cfg := manager.Cookie()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  expiresAt.UTC(),
		MaxAge:   int(manager.SessionTimeout() / time.Second),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

// ClearSessionCookie instructs the client to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, manager *goSession.Manager) {
	cfg := manager.Cookie()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}
