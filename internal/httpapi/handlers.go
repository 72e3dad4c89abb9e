package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 4 << 10

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type sessionView struct {
	Username         string    `json:"username"`
	IssuedAt         time.Time `json:"login_time"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds float64   `json:"remaining_time"`
}

func newSessionView(info goSession.SessionInfo) sessionView {
	return sessionView{
		Username:         info.Principal,
		IssuedAt:         info.IssuedAt,
		ExpiresAt:        info.ExpiresAt,
		RemainingSeconds: info.Remaining.Seconds(),
	}
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	res, err := h.manager.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, goSession.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, loginResponse{Message: res.Message})
		return
	case errors.Is(err, goSession.ErrLoginRateLimited):
		writeJSON(w, http.StatusTooManyRequests, loginResponse{Message: res.Message})
		return
	default:
		h.internalError(w, "login", err)
		return
	}

	middleware.SetSessionCookie(w, h.manager, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Message:   res.Message,
		Token:     res.Token,
		ExpiresAt: &res.ExpiresAt,
	})
}

// logout always clears the cookie, including when the token is unknown.
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w, h.manager)

	token, ok := middleware.TokenFromRequest(r, h.manager.Cookie().Name)
	if !ok {
		writeJSON(w, http.StatusOK, messageResponse{Message: "no session"})
		return
	}

	res, err := h.manager.Logout(r.Context(), token)
	if err != nil && !errors.Is(err, goSession.ErrSessionNotFound) {
		h.internalError(w, "logout", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: res.Success, Message: res.Message})
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.TokenFromContext(r.Context())

	next, err := h.manager.Refresh(r.Context(), token)
	if errors.Is(err, goSession.ErrSessionNotFound) {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "session not found"})
		return
	}
	if err != nil {
		h.internalError(w, "refresh", err)
		return
	}

	info, err := h.manager.SessionInfo(r.Context(), next)
	if err != nil {
		h.internalError(w, "refresh", err)
		return
	}

	middleware.SetSessionCookie(w, h.manager, next, info.ExpiresAt)
	writeJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Message:   "session refreshed",
		Token:     next,
		ExpiresAt: &info.ExpiresAt,
	})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	info, _ := middleware.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      info.Principal,
		"session_info":  newSessionView(info),
		"config": map[string]any{
			"session_timeout": int(h.manager.SessionTimeout() / time.Second),
		},
	})
}

func (h *handler) sessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.manager.ListActiveSessions(r.Context())
	if err != nil {
		h.internalError(w, "list sessions", err)
		return
	}
	views := make([]sessionView, 0, len(list))
	for _, info := range list {
		views = append(views, newSessionView(info))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

func (h *handler) terminateAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.manager.TerminateAll(r.Context())
	if err != nil {
		h.internalError(w, "terminate sessions", err)
		return
	}
	// The caller's own session is among those terminated.
	middleware.ClearSessionCookie(w, h.manager)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    fmt.Sprintf("%d sessions terminated", n),
		"terminated": n,
	})
}

func (h *handler) terminatePrincipal(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	n, err := h.manager.TerminatePrincipal(r.Context(), username)
	if err != nil {
		h.internalError(w, "terminate session", err)
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "no session found for " + username})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    fmt.Sprintf("%d sessions of %s terminated", n, username),
		"terminated": n,
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	hc := h.manager.Health(r.Context())
	status := "ok"
	if hc.Backend == goSession.BackendRedis && (!hc.RedisReachable || hc.FallbackActive) {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          status,
		"backend":         hc.Backend,
		"redis_reachable": hc.RedisReachable,
		"redis_latency":   hc.RedisLatency.String(),
		"fallback_active": hc.FallbackActive,
	})
}

func (h *handler) internalError(w http.ResponseWriter, op string, err error) {
	h.log.WithError(err).WithField("op", op).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
