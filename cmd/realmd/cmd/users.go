package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	goRealm "github.com/MrEthical07/goRealm"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newUsersCommand())
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q: expected a positive integer", raw)
	}
	return id, nil
}

func newUsersCommand() *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts in the Postgres credential store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var disabled bool
	add := &cobra.Command{
		Use:   "add <login-name> <password>",
		Short: "Create an account with an argon2id password hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loginName, pwd := strings.TrimSpace(args[0]), args[1]
			if loginName == "" {
				return errors.New("login name is required")
			}

			hasher, err := newHasher(settings.Realm)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(pwd)
			if err != nil {
				return err
			}
			ids, err := newAllocator(settings.Realm)
			if err != nil {
				return err
			}
			id, err := ids.NextID()
			if err != nil {
				return err
			}

			adapter, db, err := openPostgres(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			defer adapter.Close()

			rec := goRealm.UserCredentialRecord{ID: int64(id), LoginName: loginName, PasswordHash: hash}
			if disabled {
				rec.Status = goRealm.StatusDisabled
			}
			if err := adapter.InsertUser(cmd.Context(), rec); err != nil {
				return err
			}
			cmd.Printf("Created %s with id %d\n", loginName, rec.ID)
			return nil
		},
	}
	add.Flags().BoolVar(&disabled, "disabled", false, "Create the account disabled.")
	usersCmd.AddCommand(add)

	usersCmd.AddCommand(&cobra.Command{
		Use:   "unlock <login-name>",
		Short: "Clear the lockout state of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, db, err := openPostgres(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			defer adapter.Close()

			rec, err := adapter.GetByLoginName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rec.Locked = false
			rec.LoginFailCount = 0
			rec.LockedAt = nil
			if err := adapter.Update(cmd.Context(), *rec); err != nil {
				return err
			}
			cmd.Printf("Unlocked %s\n", rec.LoginName)
			return nil
		},
	})

	usersCmd.AddCommand(&cobra.Command{
		Use:   "hash <password>",
		Short: "Print the argon2id hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasher, err := newHasher(settings.Realm)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(args[0])
			if err != nil {
				return err
			}
			cmd.Println(hash)
			return nil
		},
	})

	return usersCmd
}
