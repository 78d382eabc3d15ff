package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	goRealm "github.com/MrEthical07/goRealm"
	"github.com/MrEthical07/goRealm/filter"
	"github.com/go-logr/logr"
)

// DenyFunc writes the response for a rejected request. err is
// goRealm.ErrNotLoggedIn, goRealm.ErrForbidden or the error that made
// the permission check fail.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, err error)

// Options tunes Access. The zero value is usable.
type Options struct {
	// LoginHandler receives POST requests to Config.Filter.LoginPath that
	// carry no principal. Without one such requests get a 401.
	LoginHandler http.Handler
	// Deny writes 401/403/503 responses. Defaults to http.Error.
	Deny   DenyFunc
	Logger logr.Logger
}

// Access enforces engine.Chain() on every request.
//
// The session behind the request is resolved first; a store failure is
// logged and the request continues as logged out. The principal and the
// session id are attached to the request context whatever the rule kind.
func Access(engine *goRealm.Engine, opts Options) func(http.Handler) http.Handler {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	log = log.WithName("access")
	deny := opts.Deny
	if deny == nil {
		deny = defaultDeny
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				deny(w, r, http.StatusServiceUnavailable, goRealm.ErrEngineNotReady)
				return
			}
			cfg := engine.Config()
			rule := engine.Chain().Match(r.URL.Path)

			ctx := withRequestContext(r)
			resolution := engine.Resolver().Resolve(r)

			var (
				principal goRealm.Principal
				loggedIn  bool
			)
			if resolution.Found() {
				opCtx, cancel := OperationContext(ctx, engine)
				sess, ok, err := engine.Session(opCtx, resolution.ID)
				cancel()
				switch {
				case err != nil:
					log.Error(err, "session lookup failed, continuing as logged out", "path", r.URL.Path)
				case ok && sess.Authenticated():
					principal = *sess.Principal
					loggedIn = true
					ctx = context.WithValue(ctx, sessionIDContextKey{}, resolution.ID)
					ctx = context.WithValue(ctx, principalContextKey{}, principal)
					if resolution.RewriteCookie && cfg.Cookie.MaxAge > 0 {
						http.SetCookie(w, engine.Resolver().Cookie(resolution.ID))
					}
				}
			}
			r = r.WithContext(ctx)

			switch rule.Kind {
			case filter.Anonymous:
				next.ServeHTTP(w, r)
				return

			case filter.Logout:
				if resolution.Found() {
					opCtx, cancel := OperationContext(ctx, engine)
					engine.Logout(opCtx, resolution.ID)
					cancel()
				}
				http.SetCookie(w, engine.Resolver().ExpiredCookie())
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if !loggedIn {
				if opts.LoginHandler != nil && isLoginRequest(r, cfg.Filter.LoginPath) {
					opts.LoginHandler.ServeHTTP(w, r)
					return
				}
				deny(w, r, http.StatusUnauthorized, goRealm.ErrNotLoggedIn)
				return
			}

			if rule.Kind == filter.AuthenticatedAndPermitted {
				required := rule.Permission
				if required == "" {
					required = r.URL.Path
				}

				opCtx, cancel := OperationContext(ctx, engine)
				permitted, err := engine.IsPermitted(opCtx, principal, required)
				cancel()
				if err != nil {
					log.Error(err, "permission check failed", "user", principal.ID, "permission", required)
					status := http.StatusForbidden
					if goRealm.IsCacheUnavailable(err) {
						status = http.StatusServiceUnavailable
					}
					deny(w, r, status, err)
					return
				}
				if !permitted {
					if !IsXHR(r) && cfg.Filter.ForbiddenURL != "" {
						http.Redirect(w, r, cfg.Filter.ForbiddenURL, http.StatusFound)
						return
					}
					deny(w, r, http.StatusForbidden, goRealm.ErrForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IsXHR reports whether r was sent by a script rather than a page load.
func IsXHR(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

func isLoginRequest(r *http.Request, loginPath string) bool {
	return loginPath != "" && r.Method == http.MethodPost && r.URL.Path == loginPath
}

func defaultDeny(w http.ResponseWriter, _ *http.Request, status int, _ error) {
	http.Error(w, http.StatusText(status), status)
}

// StatusFor maps an engine error onto the HTTP status Access would use.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, goRealm.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case goRealm.IsCacheUnavailable(err), errors.Is(err, goRealm.ErrEngineNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusForbidden
	}
}

func withRequestContext(r *http.Request) context.Context {
	ctx := r.Context()

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx = goRealm.WithClientIP(ctx, host)
	ctx = goRealm.WithUserAgent(ctx, r.UserAgent())

	return ctx
}

// OperationContext bounds ctx by the engine's store operation timeout.
func OperationContext(ctx context.Context, engine *goRealm.Engine) (context.Context, context.CancelFunc) {
	timeout := 2 * time.Second
	if engine != nil && engine.Config().Store.OperationTimeout > 0 {
		timeout = engine.Config().Store.OperationTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
