package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	goRealm "github.com/MrEthical07/goRealm"
)

const (
	userColumns = `id, login_name, login_pwd, status, login_fail_cnt, lock_flag, locked_date, del_flag`

	// soft-deleted rows stay visible so the engine can report them as unknown
	getUserByLoginNameQuery = `
SELECT ` + userColumns + `
FROM realm.sys_user
WHERE login_name = $1
ORDER BY del_flag ASC, date_modified DESC
LIMIT 1
`

	updateUserQuery = `
UPDATE realm.sys_user
SET
  login_name = $2,
  login_pwd = $3,
  status = $4,
  login_fail_cnt = $5,
  lock_flag = $6,
  locked_date = $7,
  del_flag = $8,
  date_modified = $9
WHERE id = $1
`

	insertUserQuery = `
INSERT INTO realm.sys_user (
  id, login_name, login_pwd, status, login_fail_cnt, lock_flag, locked_date, del_flag, date_added, date_modified
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
`
)

// GetByLoginName returns the newest live record for loginName, or a
// soft-deleted one when no live record exists.
func (a *Adapter) GetByLoginName(ctx context.Context, loginName string) (*goRealm.UserCredentialRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return nil, err
	}
	rec, err := scanUser(a.stmts.getUserByLoginName.QueryRowContext(ctx, loginName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goRealm.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres adapter: get user: %w", err)
	}
	return rec, nil
}

// Update writes every mutable column of rec.
func (a *Adapter) Update(ctx context.Context, rec goRealm.UserCredentialRecord) error {
	if err := a.requirePreparedStatements(); err != nil {
		return err
	}
	res, err := a.stmts.updateUser.ExecContext(
		ctx,
		rec.ID,
		rec.LoginName,
		rec.PasswordHash,
		int16(rec.Status),
		rec.LoginFailCount,
		rec.Locked,
		nullTime(rec.LockedAt),
		rec.Deleted,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres adapter: update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres adapter: update user: %w", err)
	}
	if n == 0 {
		return goRealm.ErrUserNotFound
	}
	return nil
}

// InsertUser creates rec. The caller supplies the id.
func (a *Adapter) InsertUser(ctx context.Context, rec goRealm.UserCredentialRecord) error {
	if err := a.requirePreparedStatements(); err != nil {
		return err
	}
	if rec.ID == 0 {
		return errors.New("postgres adapter: insert user: id is required")
	}
	_, err := a.stmts.insertUser.ExecContext(
		ctx,
		rec.ID,
		rec.LoginName,
		rec.PasswordHash,
		int16(rec.Status),
		rec.LoginFailCount,
		rec.Locked,
		nullTime(rec.LockedAt),
		rec.Deleted,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres adapter: insert user: %w", err)
	}
	return nil
}

func scanUser(row scanner) (*goRealm.UserCredentialRecord, error) {
	var (
		rec      goRealm.UserCredentialRecord
		status   int16
		lockedAt sql.NullTime
	)
	if err := row.Scan(
		&rec.ID,
		&rec.LoginName,
		&rec.PasswordHash,
		&status,
		&rec.LoginFailCount,
		&rec.Locked,
		&lockedAt,
		&rec.Deleted,
	); err != nil {
		return nil, err
	}
	rec.Status = goRealm.AccountStatus(status)
	if lockedAt.Valid {
		t := lockedAt.Time
		rec.LockedAt = &t
	}
	return &rec, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
