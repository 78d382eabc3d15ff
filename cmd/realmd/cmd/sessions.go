package cmd

import (
	"context"
	"fmt"
	"time"

	goRealm "github.com/MrEthical07/goRealm"
	"github.com/MrEthical07/goRealm/kv"
	"github.com/MrEthical07/goRealm/permission"
	"github.com/MrEthical07/goRealm/session"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSessionsCommand())
	rootCmd.AddCommand(newAuthzCommand())
}

// openRemoteStore refuses the process-local fallback: an operator command
// would only ever see its own empty memory.
func openRemoteStore() (kv.Store, error) {
	if len(settings.Realm.Store.Addrs) == 0 {
		return nil, fmt.Errorf("no store addresses configured: set realm.store.addrs or REALM_REDIS_ADDR")
	}
	return goRealm.OpenStore(settings.Realm.Store, logger, nil)
}

func operationContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 10*settings.Realm.Store.OperationTimeout)
}

func newSessionsCommand() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and revoke sessions in the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	withStore := func(run func(cmd *cobra.Command, store *session.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			backend, err := openRemoteStore()
			if err != nil {
				return err
			}
			defer backend.Close()
			store := session.NewStore(backend, session.Config{
				KeyPrefix: settings.Realm.Session.KeyPrefix,
				TTL:       settings.Realm.Session.TTL,
				Logger:    logger.WithName("session"),
			})
			return run(cmd, store, args)
		}
	}

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List active sessions",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *session.Store, _ []string) error {
			ctx, cancel := operationContext(cmd.Context())
			defer cancel()
			active, err := store.ListActive(ctx)
			if err != nil {
				return err
			}
			for _, s := range active {
				who := "-"
				if s.Principal != nil {
					who = fmt.Sprintf("%s(%d)", s.Principal.LoginName, s.Principal.ID)
				}
				cmd.Printf("%s\t%s\tcreated=%s\tlast=%s\n",
					s.ID, who, s.CreatedAt.UTC().Format(time.RFC3339), s.LastAccess.UTC().Format(time.RFC3339))
			}
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Estimate the number of active sessions",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *session.Store, _ []string) error {
			ctx, cancel := operationContext(cmd.Context())
			defer cancel()
			n, err := store.EstimateActive(ctx)
			if err != nil {
				return err
			}
			cmd.Println(n)
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>...",
		Short: "Revoke sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *session.Store, args []string) error {
			ctx, cancel := operationContext(cmd.Context())
			defer cancel()
			for _, id := range args {
				store.Delete(ctx, id)
			}
			cmd.Printf("Deleted %d session(s)\n", len(args))
			return nil
		}),
	})

	return sessionsCmd
}

func newAuthzCommand() *cobra.Command {
	authzCmd := &cobra.Command{
		Use:   "authz",
		Short: "Inspect and invalidate cached authorization snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	withCache := func(run func(cmd *cobra.Command, cache *permission.Cache, realm string, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			backend, err := openRemoteStore()
			if err != nil {
				return err
			}
			defer backend.Close()
			cache := permission.NewCache(backend, permission.CacheConfig{
				KeyPrefix: settings.Realm.Cache.KeyPrefix,
				TTL:       settings.Realm.Cache.TTL,
				Logger:    logger.WithName("authz"),
			})
			return run(cmd, cache, settings.Realm.Cache.RealmName, args)
		}
	}

	authzCmd.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "List cached snapshot keys",
		Args:  cobra.NoArgs,
		RunE: withCache(func(cmd *cobra.Command, cache *permission.Cache, realm string, _ []string) error {
			ctx, cancel := operationContext(cmd.Context())
			defer cancel()
			keys, err := cache.Keys(ctx, realm)
			if err != nil {
				return err
			}
			for _, k := range keys {
				cmd.Println(k)
			}
			return nil
		}),
	})

	authzCmd.AddCommand(&cobra.Command{
		Use:   "size",
		Short: "Count cached snapshots",
		Args:  cobra.NoArgs,
		RunE: withCache(func(cmd *cobra.Command, cache *permission.Cache, realm string, _ []string) error {
			ctx, cancel := operationContext(cmd.Context())
			defer cancel()
			n, err := cache.Size(ctx, realm)
			if err != nil {
				return err
			}
			cmd.Println(n)
			return nil
		}),
	})

	authzCmd.AddCommand(&cobra.Command{
		Use:   "show <user-id>",
		Short: "Print the cached snapshot of one user",
		Args:  cobra.ExactArgs(1),
		RunE: withCache(func(cmd *cobra.Command, cache *permission.Cache, realm string, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := operationContext(cmd.Context())
			defer cancel()
			snap, ok, err := cache.Get(ctx, realm, id)
			if err != nil {
				return err
			}
			if !ok {
				cmd.Println("not cached")
				return nil
			}
			cmd.Printf("roles=%v\npermissions=%v\n", snap.Roles, snap.Permissions)
			return nil
		}),
	})

	authzCmd.AddCommand(&cobra.Command{
		Use:   "invalidate <user-id>...",
		Short: "Drop cached snapshots so the next check reloads them",
		Args:  cobra.MinimumNArgs(1),
		RunE: withCache(func(cmd *cobra.Command, cache *permission.Cache, realm string, args []string) error {
			ctx, cancel := operationContext(cmd.Context())
			defer cancel()
			for _, raw := range args {
				id, err := parseUserID(raw)
				if err != nil {
					return err
				}
				if err := cache.Invalidate(ctx, realm, id); err != nil {
					return err
				}
			}
			cmd.Printf("Invalidated %d snapshot(s)\n", len(args))
			return nil
		}),
	})

	return authzCmd
}
