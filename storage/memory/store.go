// Package memory keeps users, roles and menus in process memory. It backs
// the development server and tests; nothing survives a restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goRealm "github.com/MrEthical07/goRealm"
)

// ErrDuplicateLoginName is returned by AddUser for a login name already in use.
var ErrDuplicateLoginName = errors.New("login name already exists")

// IDSource mints user ids. *idgen.Allocator satisfies it.
type IDSource interface {
	NextID() (uint64, error)
}

// Store implements goRealm.CredentialStore and goRealm.AuthorizationSource.
type Store struct {
	mu      sync.RWMutex
	byID    map[int64]goRealm.UserCredentialRecord
	byLogin map[string]int64
	roles   map[int64][]goRealm.RoleRecord
	menus   map[int64][]goRealm.MenuRecord
	ids     IDSource
	nextID  int64
	updates int
}

var (
	_ goRealm.CredentialStore     = (*Store)(nil)
	_ goRealm.AuthorizationSource = (*Store)(nil)
)

// New returns an empty Store. ids may be nil, in which case user ids are
// assigned sequentially from 1.
func New(ids IDSource) *Store {
	return &Store{
		byID:    make(map[int64]goRealm.UserCredentialRecord),
		byLogin: make(map[string]int64),
		roles:   make(map[int64][]goRealm.RoleRecord),
		menus:   make(map[int64][]goRealm.MenuRecord),
		ids:     ids,
	}
}

// AddUser stores rec and returns its id, minting one when rec.ID is zero.
func (s *Store) AddUser(rec goRealm.UserCredentialRecord) (int64, error) {
	if strings.TrimSpace(rec.LoginName) == "" {
		return 0, errors.New("memory: login name required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byLogin[rec.LoginName]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateLoginName, rec.LoginName)
	}
	if rec.ID == 0 {
		id, err := s.mintLocked()
		if err != nil {
			return 0, err
		}
		rec.ID = id
	}
	s.byID[rec.ID] = cloneRecord(rec)
	s.byLogin[rec.LoginName] = rec.ID
	return rec.ID, nil
}

func (s *Store) mintLocked() (int64, error) {
	if s.ids != nil {
		id, err := s.ids.NextID()
		if err != nil {
			return 0, fmt.Errorf("memory: mint user id: %w", err)
		}
		return int64(id), nil
	}
	s.nextID++
	return s.nextID, nil
}

// GetByLoginName returns a copy of the record, or goRealm.ErrUserNotFound.
func (s *Store) GetByLoginName(ctx context.Context, loginName string) (*goRealm.UserCredentialRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byLogin[loginName]
	if !ok {
		return nil, goRealm.ErrUserNotFound
	}
	rec := cloneRecord(s.byID[id])
	return &rec, nil
}

// Update replaces the stored record with the same id.
func (s *Store) Update(ctx context.Context, rec goRealm.UserCredentialRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[rec.ID]
	if !ok {
		return goRealm.ErrUserNotFound
	}
	if old.LoginName != rec.LoginName {
		delete(s.byLogin, old.LoginName)
		s.byLogin[rec.LoginName] = rec.ID
	}
	s.byID[rec.ID] = cloneRecord(rec)
	s.updates++
	return nil
}

// User returns a copy of the record with id.
func (s *Store) User(id int64) (goRealm.UserCredentialRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	return cloneRecord(rec), ok
}

// Updates counts calls to Update.
func (s *Store) Updates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}

// SetRoles replaces the roles assigned to userID.
func (s *Store) SetRoles(userID int64, roles ...goRealm.RoleRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = append([]goRealm.RoleRecord(nil), roles...)
}

// SetMenus replaces the menus reachable by userID.
func (s *Store) SetMenus(userID int64, menus ...goRealm.MenuRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menus[userID] = append([]goRealm.MenuRecord(nil), menus...)
}

func (s *Store) RolesForUser(ctx context.Context, userID int64) ([]goRealm.RoleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]goRealm.RoleRecord(nil), s.roles[userID]...), nil
}

func (s *Store) MenusForUser(ctx context.Context, userID int64) ([]goRealm.MenuRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]goRealm.MenuRecord(nil), s.menus[userID]...), nil
}

func cloneRecord(rec goRealm.UserCredentialRecord) goRealm.UserCredentialRecord {
	if rec.LockedAt != nil {
		t := *rec.LockedAt
		rec.LockedAt = &t
	}
	return rec
}
