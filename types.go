package goRealm

import (
	"context"
	"time"

	"github.com/MrEthical07/goRealm/session"
)

// Principal is the identity bound to an authenticated session.
type Principal = session.Principal

// AccountStatus is the administrative state of an account.
type AccountStatus uint8

const (
	StatusEnabled  AccountStatus = 0
	StatusDisabled AccountStatus = 1
)

func (s AccountStatus) String() string {
	if s == StatusDisabled {
		return "disabled"
	}
	return "enabled"
}

// UserCredentialRecord is the slice of a user record the engine reads and
// writes. Only the engine mutates LoginFailCount, Locked and LockedAt.
type UserCredentialRecord struct {
	ID             int64
	LoginName      string
	PasswordHash   string
	Status         AccountStatus
	LoginFailCount int
	Locked         bool
	LockedAt       *time.Time
	Deleted        bool
}

// CredentialStore is the persistence collaborator for credential records.
//
// GetByLoginName returns ErrUserNotFound for an unknown login name. Update
// persists the whole record; last write wins.
type CredentialStore interface {
	GetByLoginName(ctx context.Context, loginName string) (*UserCredentialRecord, error)
	Update(ctx context.Context, record UserCredentialRecord) error
}

// RoleRecord is one role assigned to a user.
type RoleRecord struct {
	Code   string
	Status AccountStatus
}

// MenuRecord is one menu reachable by a user. Its URL doubles as a permission.
type MenuRecord struct {
	URL string
}

// AuthorizationSource loads the role and menu assignments authorization
// snapshots are computed from.
type AuthorizationSource interface {
	RolesForUser(ctx context.Context, userID int64) ([]RoleRecord, error)
	MenusForUser(ctx context.Context, userID int64) ([]MenuRecord, error)
}

// LoginOutcome is the closed set of results of one authentication attempt.
type LoginOutcome uint8

const (
	OutcomeSuccess LoginOutcome = iota
	OutcomeUnknownAccount
	OutcomeDisabled
	OutcomeLocked
	OutcomeBadCredentials
	OutcomeFailed
)

func (o LoginOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUnknownAccount:
		return "unknown_account"
	case OutcomeDisabled:
		return "disabled"
	case OutcomeLocked:
		return "locked"
	case OutcomeBadCredentials:
		return "bad_credentials"
	default:
		return "failed"
	}
}

// Err maps the outcome onto its sentinel error; nil for success.
func (o LoginOutcome) Err() error {
	switch o {
	case OutcomeSuccess:
		return nil
	case OutcomeUnknownAccount:
		return ErrUnknownAccount
	case OutcomeDisabled:
		return ErrDisabledAccount
	case OutcomeLocked:
		return ErrLockedAccount
	case OutcomeBadCredentials:
		return ErrIncorrectCredentials
	default:
		return ErrAuthenticationFailed
	}
}

// LoginResult carries the outcome of Authenticate. Principal is set only
// for OutcomeSuccess.
type LoginResult struct {
	Outcome   LoginOutcome
	Principal Principal
}

// LoginSession is returned by Login: the authenticated principal and the
// id of the session now bound to it.
type LoginSession struct {
	Principal Principal
	SessionID string
}
