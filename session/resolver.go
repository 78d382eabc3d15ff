package session

import (
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultHeaderName carries the session id for API clients.
	DefaultHeaderName = "Authorization"
	// DefaultCookieName is kept apart from the servlet-style JSESSIONID so
	// both can live in one deployment.
	DefaultCookieName = "SHARE_JSESSIONID"
)

// Source says where a session id was found.
type Source uint8

const (
	SourceNone Source = iota
	SourceHeader
	SourceCookie
)

func (s Source) String() string {
	switch s {
	case SourceHeader:
		return "header"
	case SourceCookie:
		return "cookie"
	default:
		return "none"
	}
}

// Resolution is the outcome of resolving one request.
type Resolution struct {
	ID     string
	Source Source
	// RewriteCookie is false when the id came from the header; such
	// clients manage the id themselves and must not receive a cookie.
	RewriteCookie bool
}

// Found reports whether the request carried a session id.
func (r Resolution) Found() bool {
	return r.Source != SourceNone
}

// ResolverConfig names the carriers and cookie attributes.
type ResolverConfig struct {
	HeaderName string
	CookieName string
	CookiePath string
	Secure     bool
	SameSite   http.SameSite
	// MaxAge of issued cookies. Zero issues a browser-session cookie.
	MaxAge time.Duration
}

// Resolver picks the session id of a request: a non-empty header wins and
// is used verbatim, otherwise the session cookie is consulted.
type Resolver struct {
	cfg ResolverConfig
}

// NewResolver fills defaults into cfg.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	return &Resolver{cfg: cfg}
}

// Resolve never fails; a request without either carrier resolves to SourceNone.
func (r *Resolver) Resolve(req *http.Request) Resolution {
	if v := req.Header.Get(r.cfg.HeaderName); strings.TrimSpace(v) != "" {
		return Resolution{ID: v, Source: SourceHeader}
	}
	if c, err := req.Cookie(r.cfg.CookieName); err == nil && c.Value != "" {
		return Resolution{ID: c.Value, Source: SourceCookie, RewriteCookie: true}
	}
	return Resolution{}
}

// Cookie builds the HttpOnly cookie carrying id.
func (r *Resolver) Cookie(id string) *http.Cookie {
	c := &http.Cookie{
		Name:     r.cfg.CookieName,
		Value:    id,
		Path:     r.cfg.CookiePath,
		HttpOnly: true,
		Secure:   r.cfg.Secure,
		SameSite: r.cfg.SameSite,
	}
	if r.cfg.MaxAge > 0 {
		c.MaxAge = int(r.cfg.MaxAge / time.Second)
	}
	return c
}

// ExpiredCookie builds a cookie that makes the browser drop the session id.
func (r *Resolver) ExpiredCookie() *http.Cookie {
	c := r.Cookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}
