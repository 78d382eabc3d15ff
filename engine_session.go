package goRealm

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/goRealm/session"
)

const (
	attrClientIP  = "client_ip"
	attrUserAgent = "user_agent"
)

// Login authenticates and, on success, binds the principal to a fresh
// session. previousSessionID, when non-empty, is discarded so a session
// id carried before login is never promoted to an authenticated one.
//
// A failed authentication returns the outcome's sentinel error; a session
// store failure after a successful authentication returns an error
// matching ErrUnknownSession.
func (e *Engine) Login(ctx context.Context, loginName, password, previousSessionID string) (LoginSession, error) {
	result, err := e.Authenticate(ctx, loginName, password)
	if err != nil {
		return LoginSession{}, err
	}

	if previousSessionID != "" {
		e.sessions.Delete(ctx, previousSessionID)
	}

	principal := result.Principal
	sess := &session.Session{
		Principal:  &principal,
		Attributes: map[string]string{},
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		sess.Attributes[attrClientIP] = ip
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		sess.Attributes[attrUserAgent] = ua
	}

	id, err := e.sessions.Create(ctx, sess)
	if err != nil {
		e.emitAudit(ctx, auditEventSessionUnavailable, false, principal.ID, principal.LoginName, "", err, nil)
		return LoginSession{}, err
	}
	e.metricInc(MetricSessionCreated)

	return LoginSession{Principal: principal, SessionID: id}, nil
}

// Logout removes a session. It is idempotent and never fails: an unknown
// id is a no-op and a store failure only leaves the entry to expire.
func (e *Engine) Logout(ctx context.Context, sessionID string) {
	if e == nil || e.sessions == nil || strings.TrimSpace(sessionID) == "" {
		return
	}
	var principal Principal
	if sess, ok, err := e.sessions.Read(ctx, sessionID); err == nil && ok && sess.Principal != nil {
		principal = *sess.Principal
	}
	e.sessions.Delete(ctx, sessionID)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventLogoutSession, true, principal.ID, principal.LoginName, sessionID, nil, nil)
}

// Session loads the session behind id. With sliding expiration enabled the
// read also pushes the expiry forward. A missing or expired session is
// (nil, false, nil).
func (e *Engine) Session(ctx context.Context, id string) (*session.Session, bool, error) {
	if e == nil || e.sessions == nil {
		return nil, false, ErrEngineNotReady
	}
	if e.config.Session.SlidingExpiration {
		return e.sessions.Touch(ctx, id)
	}
	return e.sessions.Read(ctx, id)
}

// Principal returns the principal bound to session id. ErrNotLoggedIn is
// returned for a missing, expired or anonymous session.
func (e *Engine) Principal(ctx context.Context, id string) (Principal, error) {
	sess, ok, err := e.Session(ctx, id)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
	}
	if !ok || !sess.Authenticated() {
		return Principal{}, ErrNotLoggedIn
	}
	return *sess.Principal, nil
}
