package goRealm

import (
	"errors"

	"github.com/MrEthical07/goRealm/idgen"
	"github.com/MrEthical07/goRealm/permission"
	"github.com/MrEthical07/goRealm/session"
)

var (
	// ErrUnknownAccount is returned for a login name with no record, or a soft-deleted one.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrDisabledAccount is returned when the account status is disabled.
	ErrDisabledAccount = errors.New("account disabled")
	// ErrLockedAccount is returned while the lock window of an account has not elapsed.
	ErrLockedAccount = errors.New("account locked")
	// ErrIncorrectCredentials is returned when the password does not match.
	ErrIncorrectCredentials = errors.New("incorrect credentials")
	// ErrAuthenticationFailed is the catch-all for logins that failed for any other reason.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrNotLoggedIn is returned when a request needs a principal and has none.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrForbidden is returned when the principal lacks the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidConfiguration wraps every Config validation failure.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUserNotFound is returned by CredentialStore implementations for an unknown login name.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

var (
	// ErrCacheUnavailable is returned when the authorization cache cannot be reached.
	ErrCacheUnavailable = permission.ErrCacheUnavailable
	// ErrClockRegression is returned by the id allocator after the clock moved backwards.
	ErrClockRegression = idgen.ErrClockRegression
	// ErrUnknownSession is returned when the session store cannot be reached.
	ErrUnknownSession = session.ErrUnknownSession
)
