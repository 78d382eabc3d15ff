package httpapi

import (
	"errors"
	"net/http"

	goRealm "github.com/MrEthical07/goRealm"
	"github.com/MrEthical07/goRealm/kv"
)

// Code is the application-level result code carried in every envelope.
type Code string

const (
	CodeOK                     Code = "200"
	CodeRequestParamsError     Code = "1001"
	CodeAccountOrPasswordError Code = "2001"
	CodeAccountLocked          Code = "2002"
	CodeAccountDisabled        Code = "2003"
	CodeAuthenticationFailed   Code = "2004"
	CodeNotLoggedIn            Code = "401"
	CodeForbidden              Code = "403"
	CodeServerError            Code = "500"
	CodeServiceUnavailable     Code = "503"
)

var codeLabels = map[Code]string{
	CodeOK:                     "ok",
	CodeRequestParamsError:     "request_params_error",
	CodeAccountOrPasswordError: "account_or_password_error",
	CodeAccountLocked:          "account_locked",
	CodeAccountDisabled:        "account_disabled",
	CodeAuthenticationFailed:   "authentication_failed",
	CodeNotLoggedIn:            "not_logged_in",
	CodeForbidden:              "forbidden",
	CodeServerError:            "server_error",
	CodeServiceUnavailable:     "service_unavailable",
}

// Label is the short message sent alongside c.
func (c Code) Label() string {
	if l, ok := codeLabels[c]; ok {
		return l
	}
	return codeLabels[CodeServerError]
}

// HTTPStatus is the transport status used for c. Login failures are
// reported in the envelope with a 200 so clients read one body shape.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotLoggedIn:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRequestParamsError:
		return http.StatusBadRequest
	case CodeServerError:
		return http.StatusInternalServerError
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

// CodeFor maps an engine error onto a response code. An unknown account
// and a wrong password share one code.
func CodeFor(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, goRealm.ErrUnknownAccount), errors.Is(err, goRealm.ErrIncorrectCredentials):
		return CodeAccountOrPasswordError
	case errors.Is(err, goRealm.ErrLockedAccount):
		return CodeAccountLocked
	case errors.Is(err, goRealm.ErrDisabledAccount):
		return CodeAccountDisabled
	case errors.Is(err, goRealm.ErrNotLoggedIn):
		return CodeNotLoggedIn
	case errors.Is(err, goRealm.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, goRealm.ErrCacheUnavailable),
		errors.Is(err, goRealm.ErrUnknownSession),
		errors.Is(err, kv.ErrUnavailable),
		errors.Is(err, goRealm.ErrEngineNotReady):
		return CodeServiceUnavailable
	case errors.Is(err, goRealm.ErrAuthenticationFailed):
		return CodeAuthenticationFailed
	default:
		return CodeServerError
	}
}
