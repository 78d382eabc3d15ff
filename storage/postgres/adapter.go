// Package postgres implements goRealm.CredentialStore and
// goRealm.AuthorizationSource over the realm schema, and runs that
// schema's migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	goRealm "github.com/MrEthical07/goRealm"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrNilDB                 = errors.New("postgres adapter: db is nil")
	ErrAdapterNotInitialized = errors.New("postgres adapter: adapter not initialized")
)

var (
	_ goRealm.CredentialStore     = (*Adapter)(nil)
	_ goRealm.AuthorizationSource = (*Adapter)(nil)
)

// Adapter reads and writes realm.* tables through prepared statements.
type Adapter struct {
	db    *sql.DB
	stmts preparedStatements
}

type preparedStatements struct {
	getUserByLoginName *sql.Stmt
	updateUser         *sql.Stmt
	insertUser         *sql.Stmt
	listRolesByUser    *sql.Stmt
	listMenusByUser    *sql.Stmt
}

type prepareStatementSpec struct {
	label  string
	query  string
	assign func(*preparedStatements, *sql.Stmt)
}

var prepareStatementSpecs = []prepareStatementSpec{
	{
		label: "get user by login name",
		query: getUserByLoginNameQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.getUserByLoginName = stmt
		},
	},
	{
		label: "update user",
		query: updateUserQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.updateUser = stmt
		},
	},
	{
		label: "insert user",
		query: insertUserQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.insertUser = stmt
		},
	},
	{
		label: "list roles by user",
		query: listRolesByUserQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.listRolesByUser = stmt
		},
	},
	{
		label: "list menus by user",
		query: listMenusByUserQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.listMenusByUser = stmt
		},
	},
}

// Config opens a database for the adapter.
type Config struct {
	DSN             string        `yaml:"dsn"`
	DriverName      string        `yaml:"driver_name"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
}

// Open connects with cfg, pings, and prepares an Adapter. Closing the
// Adapter does not close the returned *sql.DB.
func Open(ctx context.Context, cfg Config) (*Adapter, *sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil, errors.New("postgres adapter: dsn is required")
	}
	if cfg.DriverName == "" {
		cfg.DriverName = "pgx"
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}

	db, err := sql.Open(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres adapter: open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("postgres adapter: ping database: %w", err)
	}

	adapter, err := NewAdapter(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return adapter, db, nil
}

// NewAdapter prepares every statement on db.
func NewAdapter(db *sql.DB) (*Adapter, error) {
	adapter := &Adapter{db: db}
	if err := adapter.prepareStatements(); err != nil {
		_ = adapter.Close()
		return nil, err
	}
	return adapter, nil
}

// Close releases the prepared statements.
func (a *Adapter) Close() error {
	if a == nil {
		return nil
	}
	return closeStatements(
		a.stmts.getUserByLoginName,
		a.stmts.updateUser,
		a.stmts.insertUser,
		a.stmts.listRolesByUser,
		a.stmts.listMenusByUser,
	)
}

func (a *Adapter) prepareStatements() (err error) {
	db, err := a.requireDB()
	if err != nil {
		return err
	}

	prepared := make([]*sql.Stmt, 0, len(prepareStatementSpecs))
	defer func() {
		if err != nil {
			_ = closeStatements(prepared...)
		}
	}()

	for _, spec := range prepareStatementSpecs {
		stmt, prepErr := db.Prepare(spec.query)
		if prepErr != nil {
			err = fmt.Errorf("postgres adapter: prepare %s statement: %w", spec.label, prepErr)
			return err
		}
		prepared = append(prepared, stmt)
		spec.assign(&a.stmts, stmt)
	}
	return nil
}

func (a *Adapter) requirePreparedStatements() error {
	if _, err := a.requireDB(); err != nil {
		return err
	}
	if a.stmts.getUserByLoginName == nil || a.stmts.updateUser == nil || a.stmts.insertUser == nil {
		return ErrAdapterNotInitialized
	}
	if a.stmts.listRolesByUser == nil || a.stmts.listMenusByUser == nil {
		return ErrAdapterNotInitialized
	}
	return nil
}

func (a *Adapter) requireDB() (*sql.DB, error) {
	if a == nil || a.db == nil {
		return nil, ErrNilDB
	}
	return a.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func closeStatements(stmts ...*sql.Stmt) error {
	var errs []error
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
