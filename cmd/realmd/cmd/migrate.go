package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MrEthical07/goRealm/storage/postgres"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newMigrateCommand())
}

func newMigrateCommand() *cobra.Command {
	var (
		databaseURL     string
		migrationsTable string
	)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run realm schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Database URL (defaults to database.dsn or REALM_DATABASE_URL).")
	migrateCmd.PersistentFlags().StringVar(&migrationsTable, "migrations-table", postgres.DefaultMigrationsTable, "Migrations version table name.")

	newRunner := func() (*migrate.Migrate, error) {
		url := strings.TrimSpace(databaseURL)
		if url == "" {
			url = settings.Database.DSN
		}
		if url == "" {
			return nil, errors.New("missing database URL: set --database-url or REALM_DATABASE_URL")
		}
		return postgres.NewMigrator(url, migrationsTable)
	}
	closeRunner := func(cmd *cobra.Command, runner *migrate.Migrate) {
		if err := postgres.CloseMigrator(runner); err != nil {
			cmd.PrintErrf("warning: failed to close migration runner cleanly: %v\n", err)
		}
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up [steps]",
		Short: "Apply pending migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, hasSteps, err := parseMigrationStepsArg(args)
			if err != nil {
				return err
			}
			runner, err := newRunner()
			if err != nil {
				return err
			}
			defer closeRunner(cmd, runner)

			if hasSteps {
				err = runner.Steps(steps)
			} else {
				err = runner.Up()
			}
			if err != nil {
				if postgres.IsNoChange(err) {
					cmd.Println("No schema changes to apply.")
					return nil
				}
				var shortLimit migrate.ErrShortLimit
				if hasSteps && errors.As(err, &shortLimit) {
					applied := steps - int(shortLimit.Short)
					if applied <= 0 {
						cmd.Println("No schema changes to apply.")
						return nil
					}
					cmd.Printf("Applied %d migration step(s) (requested %d, reached migration boundary)\n", applied, steps)
					return nil
				}
				return fmt.Errorf("apply migrations: %w", err)
			}

			if hasSteps {
				cmd.Printf("Applied %d migration step(s)\n", steps)
				return nil
			}
			cmd.Println("Applied all pending migrations")
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down <steps>",
		Short: "Roll back migrations by step count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _, err := parseMigrationStepsArg(args)
			if err != nil {
				return err
			}
			runner, err := newRunner()
			if err != nil {
				return err
			}
			defer closeRunner(cmd, runner)

			if err := runner.Steps(-steps); err != nil {
				if postgres.IsNoChange(err) {
					cmd.Println("No schema changes to roll back.")
					return nil
				}
				var shortLimit migrate.ErrShortLimit
				if errors.As(err, &shortLimit) {
					rolledBack := steps - int(shortLimit.Short)
					if rolledBack <= 0 {
						cmd.Println("No schema changes to roll back.")
						return nil
					}
					cmd.Printf("Rolled back %d migration step(s) (requested %d, reached migration boundary)\n", rolledBack, steps)
					return nil
				}
				return fmt.Errorf("roll back migrations: %w", err)
			}
			cmd.Printf("Rolled back %d migration step(s)\n", steps)
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Force-set the migration version (-1 for no version)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersionArg(args[0])
			if err != nil {
				return err
			}
			runner, err := newRunner()
			if err != nil {
				return err
			}
			defer closeRunner(cmd, runner)

			if err := runner.Force(version); err != nil {
				return fmt.Errorf("force migration version: %w", err)
			}
			cmd.Printf("Forced migration version to %d.\n", version)
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newRunner()
			if err != nil {
				return err
			}
			defer closeRunner(cmd, runner)

			version, dirty, err := runner.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				cmd.Println("No migrations applied.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("read migration version: %w", err)
			}
			cmd.Printf("%d (dirty=%t)\n", version, dirty)
			return nil
		},
	})

	return migrateCmd
}

func parseMigrationStepsArg(args []string) (int, bool, error) {
	if len(args) == 0 {
		return 0, false, nil
	}

	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || steps <= 0 {
		return 0, false, fmt.Errorf("invalid migration steps %q: expected a positive integer", args[0])
	}
	return steps, true, nil
}

func parseForceVersionArg(arg string) (int, error) {
	version, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || version < -1 {
		return 0, fmt.Errorf("invalid force version %q: expected an integer >= -1", arg)
	}
	return version, nil
}
