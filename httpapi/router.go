package httpapi

import (
	"net/http"

	goRealm "github.com/MrEthical07/goRealm"
	realmmw "github.com/MrEthical07/goRealm/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-logr/logr"
)

// Options controls NewRouter. The zero value is valid.
type Options struct {
	Logger      logr.Logger
	CORSOptions *cors.Options
	// Middleware runs after the baseline stack and before access control.
	Middleware []func(http.Handler) http.Handler
	// MetricsHandler, when set, is served at /metrics outside access control.
	MetricsHandler http.Handler
	// ExtraRoutes mounts application routes behind access control.
	ExtraRoutes func(chi.Router)
}

// DefaultCORSOptions lets browser clients send the session header and cookie.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// NewRouter mounts the login, logout and identity endpoints behind
// middleware.Access. The login path comes from the engine's filter config.
func NewRouter(engine *goRealm.Engine, opts Options) chi.Router {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	h := &handlers{engine: engine, log: log.WithName("httpapi")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", h.health)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	loginPath := "/admin/login"
	if engine != nil && engine.Config().Filter.LoginPath != "" {
		loginPath = engine.Config().Filter.LoginPath
	}

	r.Group(func(r chi.Router) {
		r.Use(realmmw.Access(engine, realmmw.Options{
			LoginHandler: http.HandlerFunc(h.login),
			Deny:         h.deny,
			Logger:       log,
		}))

		r.Post(loginPath, h.login)
		r.Get("/admin/logout", h.logout)
		r.Post("/admin/logout", h.logout)
		r.Get("/admin/notLogin", h.notLogin)
		r.Get("/admin/unauthorized", h.unauthorized)
		r.Get("/admin/me", h.me)

		if opts.ExtraRoutes != nil {
			opts.ExtraRoutes(r)
		}
	})

	return r
}
