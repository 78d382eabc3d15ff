package postgres

import (
	"context"
	"fmt"

	goRealm "github.com/MrEthical07/goRealm"
)

const (
	listRolesByUserQuery = `
SELECT r.role_code, r.status
FROM realm.sys_role r
JOIN realm.sys_user_role ur ON ur.role_id = r.id
WHERE ur.user_id = $1
ORDER BY r.role_code
`

	listMenusByUserQuery = `
SELECT DISTINCT m.url
FROM realm.sys_menu m
JOIN realm.sys_role_menu rm ON rm.menu_id = m.id
JOIN realm.sys_user_role ur ON ur.role_id = rm.role_id
JOIN realm.sys_role r ON r.id = ur.role_id
WHERE ur.user_id = $1 AND r.status = 0
ORDER BY m.url
`
)

// RolesForUser lists every role assigned to userID, disabled ones included.
func (a *Adapter) RolesForUser(ctx context.Context, userID int64) ([]goRealm.RoleRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return nil, err
	}
	rows, err := a.stmts.listRolesByUser.QueryContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres adapter: list roles: %w", err)
	}
	defer rows.Close()

	var out []goRealm.RoleRecord
	for rows.Next() {
		var (
			code   string
			status int16
		)
		if err := rows.Scan(&code, &status); err != nil {
			return nil, fmt.Errorf("postgres adapter: scan role: %w", err)
		}
		out = append(out, goRealm.RoleRecord{Code: code, Status: goRealm.AccountStatus(status)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres adapter: list roles: %w", err)
	}
	return out, nil
}

// MenusForUser lists the menus reachable through the user's enabled roles.
func (a *Adapter) MenusForUser(ctx context.Context, userID int64) ([]goRealm.MenuRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return nil, err
	}
	rows, err := a.stmts.listMenusByUser.QueryContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres adapter: list menus: %w", err)
	}
	defer rows.Close()

	var out []goRealm.MenuRecord
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("postgres adapter: scan menu: %w", err)
		}
		out = append(out, goRealm.MenuRecord{URL: url})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres adapter: list menus: %w", err)
	}
	return out, nil
}
