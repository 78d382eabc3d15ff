package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"
)

var BuildVersion = "dev"

var (
	configPath string
	verbosity  int

	settings *fileConfig
	logger   logr.Logger
)

var rootCmd = &cobra.Command{
	Use:           "realmd",
	Short:         "goRealm authentication server",
	Long:          "Serves login, logout and access control for a goRealm deployment and runs its operator tasks.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		stdr.SetVerbosity(verbosity)
		logger = stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("realmd")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		settings = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file. Can also be set via REALM_CONFIG.")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "Log verbosity; 1 adds lifecycle messages.")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of realmd",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	})
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
