// Package httpapi serves the admin session endpoints over HTTP.
package httpapi

import (
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Manager *goSession.Manager
	Logger  logrus.FieldLogger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

type handler struct {
	manager *goSession.Manager
	log     logrus.FieldLogger
}

// NewRouter wires every admin route onto a chi router.
func NewRouter(opts Options) http.Handler {
	h := &handler{manager: opts.Manager, log: opts.Logger}
	if h.log == nil {
		h.log = logrus.New()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(h.log))

	r.Get("/healthz", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/admin", func(r chi.Router) {
		r.With(middleware.ClientMeta).Post("/login", h.login)
		r.With(middleware.ClientMeta).Post("/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(opts.Manager))
			r.Post("/refresh", h.refresh)
			r.Get("/me", h.me)
			r.Get("/sessions", h.sessions)
			r.Post("/sessions/terminate-all", h.terminateAll)
			r.Delete("/sessions/{username}", h.terminatePrincipal)
		})
	})

	return r
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": chimw.GetReqID(r.Context()),
			}).Debug("request served")
		})
	}
}
