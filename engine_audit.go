package goRealm

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/goRealm/kv"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventAccountLocked      = "account_locked"
	auditEventAccountUnlocked    = "account_unlocked"
	auditEventPasswordUpgraded   = "password_upgraded"
	auditEventLogoutSession      = "logout_session"
	auditEventPermissionDenied   = "permission_denied"
	auditEventAuthzInvalidated   = "authorization_invalidated"
	auditEventAuthzUnavailable   = "authorization_unavailable"
	auditEventSessionUnavailable = "session_unavailable"
)

// AuditErrorCode is the stable, secret-free error label carried by audit events.
type AuditErrorCode string

const (
	auditErrUnknownAccount     AuditErrorCode = "unknown_account"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrNotLoggedIn        AuditErrorCode = "not_logged_in"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrAuthFailed         AuditErrorCode = "authentication_failed"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	loginName string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		LoginName: loginName,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if userID != 0 {
		event.UserID = strconv.FormatInt(userID, 10)
	}
	if e.ids != nil {
		// a poisoned allocator only costs the event its id
		if id, idErr := e.ids.NextID(); idErr == nil {
			event.ID = id
		}
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnknownAccount), errors.Is(err, ErrUserNotFound):
		return auditErrUnknownAccount
	case errors.Is(err, ErrDisabledAccount):
		return auditErrAccountDisabled
	case errors.Is(err, ErrLockedAccount):
		return auditErrAccountLocked
	case errors.Is(err, ErrIncorrectCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrNotLoggedIn):
		return auditErrNotLoggedIn
	case errors.Is(err, ErrCacheUnavailable),
		errors.Is(err, ErrUnknownSession),
		errors.Is(err, kv.ErrUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrAuthenticationFailed):
		return auditErrAuthFailed
	default:
		return auditErrInternal
	}
}
