package goRealm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goRealm/permission"
)

// Authorize returns the role and permission snapshot of p, loading it from
// the AuthorizationSource and caching it on a miss. Only enabled roles and
// non-blank menu URLs are kept.
//
// A cache that cannot be read or written fails the call with
// ErrCacheUnavailable rather than reporting a snapshot, so callers deny.
func (e *Engine) Authorize(ctx context.Context, p Principal) (permission.Snapshot, error) {
	if e == nil || e.cache == nil {
		return permission.Snapshot{}, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeLatency(MetricAuthorizeLatency, start)

	realm := e.config.Cache.RealmName
	snap, ok, err := e.cache.Get(ctx, realm, p.ID)
	if err != nil {
		e.metricInc(MetricAuthzCacheUnavailable)
		e.emitAudit(ctx, auditEventAuthzUnavailable, false, p.ID, p.LoginName, "", err, nil)
		return permission.Snapshot{}, err
	}
	if ok {
		e.metricInc(MetricAuthzCacheHit)
		return snap, nil
	}
	e.metricInc(MetricAuthzCacheMiss)

	snap, err = e.loadSnapshot(ctx, p.ID)
	if err != nil {
		return permission.Snapshot{}, err
	}
	if err := e.cache.Put(ctx, realm, p.ID, snap); err != nil {
		e.metricInc(MetricAuthzCacheUnavailable)
		e.emitAudit(ctx, auditEventAuthzUnavailable, false, p.ID, p.LoginName, "", err, nil)
		return permission.Snapshot{}, err
	}
	return snap, nil
}

func (e *Engine) loadSnapshot(ctx context.Context, userID int64) (permission.Snapshot, error) {
	roles, err := e.authzSource.RolesForUser(ctx, userID)
	if err != nil {
		return permission.Snapshot{}, fmt.Errorf("load roles: %w", err)
	}
	menus, err := e.authzSource.MenusForUser(ctx, userID)
	if err != nil {
		return permission.Snapshot{}, fmt.Errorf("load menus: %w", err)
	}

	roleCodes := make([]string, 0, len(roles))
	for _, r := range roles {
		if r.Status != StatusEnabled {
			continue
		}
		roleCodes = append(roleCodes, r.Code)
	}
	perms := make([]string, 0, len(menus))
	for _, m := range menus {
		if strings.TrimSpace(m.URL) == "" {
			continue
		}
		perms = append(perms, m.URL)
	}
	return permission.NewSnapshot(roleCodes, perms), nil
}

// IsPermitted reports whether p holds a permission implying required,
// using wildcard semantics (see permission.Implies). It denies on every
// error, including an unavailable cache.
func (e *Engine) IsPermitted(ctx context.Context, p Principal, required string) (bool, error) {
	snap, err := e.Authorize(ctx, p)
	if err != nil {
		return false, err
	}
	if !snap.IsPermitted(required) {
		e.metricInc(MetricPermissionDenied)
		e.emitAudit(ctx, auditEventPermissionDenied, false, p.ID, p.LoginName, "", ErrForbidden, func() map[string]string {
			return map[string]string{"permission": required}
		})
		return false, nil
	}
	return true, nil
}

// HasRole reports whether p holds an enabled role with the given code.
func (e *Engine) HasRole(ctx context.Context, p Principal, role string) (bool, error) {
	snap, err := e.Authorize(ctx, p)
	if err != nil {
		return false, err
	}
	return snap.HasRole(role), nil
}

// InvalidateAuthorization drops the cached snapshot of one principal so the
// next check reloads it. Nothing calls this automatically when roles or
// menus change.
func (e *Engine) InvalidateAuthorization(ctx context.Context, principalID int64) error {
	if e == nil || e.cache == nil {
		return ErrEngineNotReady
	}
	err := e.cache.Invalidate(ctx, e.config.Cache.RealmName, principalID)
	e.emitAudit(ctx, auditEventAuthzInvalidated, err == nil, principalID, "", "", err, nil)
	return err
}

// IsCacheUnavailable reports whether err came from an unreachable
// authorization cache.
func IsCacheUnavailable(err error) bool {
	return errors.Is(err, ErrCacheUnavailable)
}
