package postgres

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/MrEthical07/goRealm/storage/postgres/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// DefaultMigrationsTable tracks the applied realm schema version.
const DefaultMigrationsTable = "realm_schema_migrations"

// NewMigrator builds a runner over the embedded realm migrations.
// databaseURL may use the postgres://, postgresql:// or pgx5:// scheme.
func NewMigrator(databaseURL, migrationsTable string) (*migrate.Migrate, error) {
	target, err := MigrationDatabaseURL(databaseURL, migrationsTable)
	if err != nil {
		return nil, err
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	runner, err := migrate.NewWithSourceInstance("iofs", src, target)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("create migrate runner: %w", err)
	}
	return runner, nil
}

// MigrationDatabaseURL rewrites databaseURL for the pgx v5 migrate driver
// and pins the version table unless the URL already names one.
func MigrationDatabaseURL(databaseURL, migrationsTable string) (string, error) {
	raw := strings.TrimSpace(databaseURL)
	if raw == "" {
		return "", errors.New("missing database URL")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse database URL: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql", "pgx", "pgx5":
		parsed.Scheme = "pgx5"
	default:
		return "", fmt.Errorf("unsupported database URL scheme %q", parsed.Scheme)
	}

	table := strings.TrimSpace(migrationsTable)
	if table == "" {
		table = DefaultMigrationsTable
	}
	query := parsed.Query()
	if strings.TrimSpace(query.Get("x-migrations-table")) == "" {
		query.Set("x-migrations-table", table)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// CloseMigrator closes both sides of runner.
func CloseMigrator(runner *migrate.Migrate) error {
	if runner == nil {
		return nil
	}
	sourceErr, databaseErr := runner.Close()
	return errors.Join(sourceErr, databaseErr)
}

// IsNoChange reports whether err only means the schema is already at
// the requested boundary.
func IsNoChange(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return true
	}
	// step commands past the first or last migration return a bare os.ErrNotExist
	return err == os.ErrNotExist
}
