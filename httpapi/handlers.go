package httpapi

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	goRealm "github.com/MrEthical07/goRealm"
	"github.com/MrEthical07/goRealm/filter"
	realmmw "github.com/MrEthical07/goRealm/middleware"
	"github.com/MrEthical07/goRealm/session"
	"github.com/go-logr/logr"
)

const maxLoginBodyBytes = 1 << 16

type handlers struct {
	engine *goRealm.Engine
	log    logr.Logger
}

type loginRequest struct {
	LoginName string `json:"loginName"`
	Password  string `json:"password"`
}

type loginData struct {
	Token string `json:"token"`
}

type meData struct {
	ID          string   `json:"id"`
	LoginName   string   `json:"loginName"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeCode(w, CodeServiceUnavailable, nil)
		return
	}

	req, err := decodeLogin(w, r)
	if err != nil || strings.TrimSpace(req.LoginName) == "" || req.Password == "" {
		writeCode(w, CodeRequestParamsError, nil)
		return
	}

	resolution := h.engine.Resolver().Resolve(r)
	ctx, cancel := realmmw.OperationContext(r.Context(), h.engine)
	defer cancel()

	ls, err := h.engine.Login(ctx, req.LoginName, req.Password, resolution.ID)
	if err != nil {
		code := CodeFor(err)
		if code == CodeServerError || code == CodeServiceUnavailable {
			h.log.Error(err, "login failed", "loginName", req.LoginName)
		}
		writeCode(w, code, nil)
		return
	}

	if resolution.Source != session.SourceHeader {
		http.SetCookie(w, h.engine.Resolver().Cookie(ls.SessionID))
	}
	writeCode(w, CodeOK, loginData{Token: ls.SessionID})
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (loginRequest, error) {
	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes))
		if err := dec.Decode(&req); err != nil {
			return loginRequest{}, err
		}
		return req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
	if err := r.ParseForm(); err != nil {
		return loginRequest{}, err
	}
	req.LoginName = r.PostForm.Get("loginName")
	req.Password = r.PostForm.Get("password")
	return req, nil
}

// logout is idempotent. When the filter chain already ran a logout rule
// for this path the session is gone and only the response is written.
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if h.engine != nil && h.engine.Chain().Match(r.URL.Path).Kind != filter.Logout {
		resolution := h.engine.Resolver().Resolve(r)
		if resolution.Found() {
			ctx, cancel := realmmw.OperationContext(r.Context(), h.engine)
			h.engine.Logout(ctx, resolution.ID)
			cancel()
		}
		http.SetCookie(w, h.engine.Resolver().ExpiredCookie())
	}
	writeCode(w, CodeOK, nil)
}

func (h *handlers) notLogin(w http.ResponseWriter, _ *http.Request) {
	writeCode(w, CodeNotLoggedIn, nil)
}

func (h *handlers) unauthorized(w http.ResponseWriter, _ *http.Request) {
	writeCode(w, CodeForbidden, nil)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	p, ok := realmmw.PrincipalFromContext(r.Context())
	if !ok {
		writeCode(w, CodeNotLoggedIn, nil)
		return
	}

	ctx, cancel := realmmw.OperationContext(r.Context(), h.engine)
	defer cancel()
	snap, err := h.engine.Authorize(ctx, p)
	if err != nil {
		h.log.Error(err, "authorization lookup failed", "user", p.ID)
		writeCode(w, CodeFor(err), nil)
		return
	}

	writeCode(w, CodeOK, meData{
		ID:          strconv.FormatInt(p.ID, 10),
		LoginName:   p.LoginName,
		Roles:       nonNil(snap.Roles),
		Permissions: nonNil(snap.Permissions),
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeCode(w, CodeServiceUnavailable, nil)
		return
	}
	ctx, cancel := realmmw.OperationContext(r.Context(), h.engine)
	defer cancel()

	rtt, err := h.engine.Ping(ctx)
	if err != nil {
		h.log.Error(err, "health check failed")
		writeCode(w, CodeServiceUnavailable, nil)
		return
	}
	writeCode(w, CodeOK, map[string]string{"store": rtt.String()})
}

// deny renders middleware rejections in the envelope format.
func (h *handlers) deny(w http.ResponseWriter, _ *http.Request, status int, err error) {
	code := CodeFor(err)
	if code == CodeServerError {
		switch status {
		case http.StatusUnauthorized:
			code = CodeNotLoggedIn
		case http.StatusServiceUnavailable:
			code = CodeServiceUnavailable
		default:
			code = CodeForbidden
		}
	}
	writeCode(w, code, nil)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
