package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goRealm "github.com/MrEthical07/goRealm"
	"github.com/MrEthical07/goRealm/idgen"
	"github.com/MrEthical07/goRealm/password"
	"github.com/MrEthical07/goRealm/storage/memory"
	"github.com/MrEthical07/goRealm/storage/postgres"
)

// backend is the credential and authorization side of a running engine.
type backend struct {
	credentials goRealm.CredentialStore
	authz       goRealm.AuthorizationSource
	adapter     *postgres.Adapter
	db          *sql.DB
}

func (b *backend) Close() error {
	if b == nil || b.adapter == nil {
		return nil
	}
	return errors.Join(b.adapter.Close(), b.db.Close())
}

func newAllocator(cfg goRealm.Config) (*idgen.Allocator, error) {
	return idgen.New(idgen.Config{
		SiteID:   cfg.IDGen.SiteID,
		WorkerID: cfg.IDGen.WorkerID,
		Epoch:    cfg.IDGen.Epoch,
	})
}

func newHasher(cfg goRealm.Config) (*password.Argon2, error) {
	return password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
}

func openPostgres(ctx context.Context) (*postgres.Adapter, *sql.DB, error) {
	if settings.Database.DSN == "" {
		return nil, nil, errors.New("missing database DSN: set database.dsn or REALM_DATABASE_URL")
	}
	return postgres.Open(ctx, settings.Database)
}

// openBackend connects to Postgres when a DSN is configured, otherwise it
// keeps accounts in memory seeded with the bootstrap account.
func openBackend(ctx context.Context, ids *idgen.Allocator) (*backend, error) {
	if settings.Database.DSN != "" {
		adapter, db, err := openPostgres(ctx)
		if err != nil {
			return nil, err
		}
		logger.V(1).Info("using postgres credential store")
		return &backend{credentials: adapter, authz: adapter, adapter: adapter, db: db}, nil
	}

	store := memory.New(ids)
	boot := settings.Bootstrap
	if boot.LoginName == "" || boot.Password == "" {
		logger.Info("no database and no bootstrap account configured, every login will fail")
		return &backend{credentials: store, authz: store}, nil
	}

	hasher, err := newHasher(settings.Realm)
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(boot.Password)
	if err != nil {
		return nil, fmt.Errorf("hash bootstrap password: %w", err)
	}
	id, err := store.AddUser(goRealm.UserCredentialRecord{LoginName: boot.LoginName, PasswordHash: hash})
	if err != nil {
		return nil, err
	}
	roles := make([]goRealm.RoleRecord, 0, len(boot.Roles))
	for _, code := range boot.Roles {
		roles = append(roles, goRealm.RoleRecord{Code: code})
	}
	menus := make([]goRealm.MenuRecord, 0, len(boot.Menus))
	for _, url := range boot.Menus {
		menus = append(menus, goRealm.MenuRecord{URL: url})
	}
	store.SetRoles(id, roles...)
	store.SetMenus(id, menus...)

	logger.Info("using in-memory credential store", "bootstrapUser", boot.LoginName, "id", id)
	return &backend{credentials: store, authz: store}, nil
}
