package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goRealm/idgen"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newIDCommand())
}

func newIDCommand() *cobra.Command {
	idCmd := &cobra.Command{
		Use:   "id",
		Short: "Allocate or inspect realm ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var count int
	next := &cobra.Command{
		Use:   "next",
		Short: "Allocate ids with the configured site and worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("invalid --count %d: expected a positive integer", count)
			}
			ids, err := newAllocator(settings.Realm)
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				id, err := ids.NextID()
				if err != nil {
					return err
				}
				cmd.Println(id)
			}
			return nil
		},
	}
	next.Flags().IntVarP(&count, "count", "n", 1, "Number of ids to allocate.")
	idCmd.AddCommand(next)

	idCmd.AddCommand(&cobra.Command{
		Use:   "decompose <id>",
		Short: "Split an id into timestamp, site, worker and sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			epoch := settings.Realm.IDGen.Epoch
			if epoch.IsZero() {
				epoch = idgen.DefaultEpoch
			}
			parts := idgen.Decompose(id, epoch)
			cmd.Printf("time=%s site=%d worker=%d sequence=%d\n",
				parts.Time.UTC().Format(time.RFC3339Nano), parts.SiteID, parts.WorkerID, parts.Sequence)
			return nil
		},
	})

	return idCmd
}
