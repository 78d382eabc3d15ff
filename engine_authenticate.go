package goRealm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Authenticate checks loginName and password against the credential store
// and maintains the account's lockout state.
//
// The checks run in a fixed order: a missing or soft-deleted record is
// OutcomeUnknownAccount, a disabled one OutcomeDisabled. A locked record
// whose window has elapsed is unlocked (fail count reset, persisted) and
// evaluated further; otherwise it is OutcomeLocked without looking at the
// password. A wrong password increments the fail count, locks the account
// once it reaches Lockout.MaxFailures and persists. Success resets the
// fail count and persists, rehashing the password when it is stored in a
// legacy or weaker scheme.
//
// The read-modify-write of the record is not atomic; concurrent failures
// for one account may under-count by one.
//
// The returned error is nil only for OutcomeSuccess and otherwise matches
// Outcome.Err() with errors.Is.
func (e *Engine) Authenticate(ctx context.Context, loginName, password string) (LoginResult, error) {
	if e == nil || e.credentials == nil {
		return LoginResult{Outcome: OutcomeFailed}, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeLatency(MetricLoginLatency, start)

	if strings.TrimSpace(loginName) == "" || password == "" {
		return e.loginFailed(ctx, OutcomeFailed, nil, loginName, nil)
	}

	rec, err := e.credentials.GetByLoginName(ctx, loginName)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return e.loginFailed(ctx, OutcomeUnknownAccount, nil, loginName, nil)
	case err != nil:
		e.metricInc(MetricStoreUnavailable)
		e.log.Error(err, "credential lookup failed", "loginName", loginName)
		return e.loginFailed(ctx, OutcomeFailed, nil, loginName, err)
	case rec == nil, rec.Deleted:
		return e.loginFailed(ctx, OutcomeUnknownAccount, nil, loginName, nil)
	}

	if rec.Status == StatusDisabled {
		return e.loginFailed(ctx, OutcomeDisabled, rec, loginName, nil)
	}

	if rec.Locked {
		if !e.lockElapsed(rec) {
			return e.loginFailed(ctx, OutcomeLocked, rec, loginName, nil)
		}
		rec.Locked = false
		rec.LockedAt = nil
		rec.LoginFailCount = 0
		if err := e.persist(ctx, *rec); err != nil {
			return e.loginFailed(ctx, OutcomeFailed, rec, loginName, err)
		}
		e.metricInc(MetricAccountUnlocked)
		e.emitAudit(ctx, auditEventAccountUnlocked, true, rec.ID, rec.LoginName, "", nil, nil)
	}

	ok, err := e.hasher.Verify(password, rec.PasswordHash)
	if err != nil {
		// an unparseable stored hash can never match
		e.log.Error(err, "stored password hash rejected", "user", rec.ID)
		ok = false
	}
	if !ok {
		return e.recordBadPassword(ctx, rec)
	}

	rec.LoginFailCount = 0
	upgraded := e.upgradeHash(rec, password)
	if err := e.persist(ctx, *rec); err != nil {
		return e.loginFailed(ctx, OutcomeFailed, rec, loginName, err)
	}
	if upgraded {
		e.metricInc(MetricPasswordUpgraded)
		e.emitAudit(ctx, auditEventPasswordUpgraded, true, rec.ID, rec.LoginName, "", nil, nil)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, rec.ID, rec.LoginName, "", nil, nil)

	return LoginResult{
		Outcome:   OutcomeSuccess,
		Principal: Principal{ID: rec.ID, LoginName: rec.LoginName},
	}, nil
}

// lockElapsed reports whether the lock window of rec is over. A lock
// without a timestamp never elapses.
func (e *Engine) lockElapsed(rec *UserCredentialRecord) bool {
	if rec.LockedAt == nil {
		return false
	}
	unlockAt := rec.LockedAt.Add(e.config.Lockout.LockWindow)
	return e.now().After(unlockAt)
}

func (e *Engine) recordBadPassword(ctx context.Context, rec *UserCredentialRecord) (LoginResult, error) {
	rec.LoginFailCount++
	lockedNow := false
	if rec.LoginFailCount >= e.config.Lockout.MaxFailures && !rec.Locked {
		now := e.now()
		rec.Locked = true
		rec.LockedAt = &now
		lockedNow = true
	}
	if err := e.persist(ctx, *rec); err != nil {
		return e.loginFailed(ctx, OutcomeFailed, rec, rec.LoginName, err)
	}
	if lockedNow {
		e.metricInc(MetricAccountLocked)
		failures := rec.LoginFailCount
		e.emitAudit(ctx, auditEventAccountLocked, true, rec.ID, rec.LoginName, "", ErrLockedAccount, func() map[string]string {
			return map[string]string{"failures": strconv.Itoa(failures)}
		})
	}
	return e.loginFailed(ctx, OutcomeBadCredentials, rec, rec.LoginName, nil)
}

// upgradeHash rewrites rec.PasswordHash in the primary scheme when the
// stored one is legacy or weaker. A failure keeps the old hash.
func (e *Engine) upgradeHash(rec *UserCredentialRecord, password string) bool {
	if !e.config.Password.UpgradeOnLogin {
		return false
	}
	needs, err := e.hasher.NeedsUpgrade(rec.PasswordHash)
	if err != nil || !needs {
		return false
	}
	hash, err := e.hasher.Hash(password)
	if err != nil {
		e.log.Error(err, "password rehash failed", "user", rec.ID)
		return false
	}
	rec.PasswordHash = hash
	return true
}

func (e *Engine) persist(ctx context.Context, rec UserCredentialRecord) error {
	if err := e.credentials.Update(ctx, rec); err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.log.Error(err, "credential update failed", "user", rec.ID)
		return err
	}
	return nil
}

func (e *Engine) loginFailed(
	ctx context.Context,
	outcome LoginOutcome,
	rec *UserCredentialRecord,
	loginName string,
	cause error,
) (LoginResult, error) {
	e.metricInc(MetricLoginFailure)
	switch outcome {
	case OutcomeUnknownAccount:
		e.metricInc(MetricLoginUnknownAccount)
	case OutcomeDisabled:
		e.metricInc(MetricLoginDisabled)
	case OutcomeLocked:
		e.metricInc(MetricLoginLocked)
	case OutcomeBadCredentials:
		e.metricInc(MetricLoginBadCredentials)
	}

	err := outcome.Err()
	if cause != nil {
		err = fmt.Errorf("%w: %w", err, cause)
	}

	var userID int64
	if rec != nil {
		userID = rec.ID
	}
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, loginName, "", err, func() map[string]string {
		return map[string]string{"outcome": outcome.String()}
	})

	return LoginResult{Outcome: outcome}, err
}
