package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/alex-pricope/art-contest-voting/api"
	"github.com/alex-pricope/art-contest-voting/identity"
	"github.com/alex-pricope/art-contest-voting/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore every voter's daily quota now, like the 23:59 sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := api.NewServices(ctx, api.ReadConfig(), clockwork.NewRealClock())
			if err != nil {
				return err
			}
			defer services.Close()

			count, err := services.Quota.ResetAll(ctx, metrics.TriggerManual)
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d users\n", count)
			return err
		},
	}
}

func newLeaderboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Recompute and publish the leaderboard snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := api.NewServices(ctx, api.ReadConfig(), clockwork.NewRealClock())
			if err != nil {
				return err
			}
			defer services.Close()

			snapshot, err := services.Leaderboard.Refresh(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tSCORE\tID\tTITLE")
			for _, e := range snapshot.Entries {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", e.Rank, e.Score, e.ID, e.Title)
			}
			return w.Flush()
		},
	}
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash to put in admin.accounts[].passwordHash",
		Args:  cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("password must not be empty")
			}
			hash, err := identity.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
