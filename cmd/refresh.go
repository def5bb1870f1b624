package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// refreshCmd implements: rankwatch refresh
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ask the backend to recompute rankings",
	Long: `Ask the backend to recompute rankings. The request returns as soon as the
backend accepts it; with --wait, rankwatch reloads the list after refresh.delay
and prints what moved.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		wait, _ := cmd.Flags().GetBool("wait")

		s, err := newSession(cmd, printChanges)
		if err != nil {
			return err
		}
		defer s.Close()

		done, err := s.tracker.TriggerRefreshJob(cmd.Context())
		if err != nil {
			return err
		}
		if !wait {
			fmt.Println("Ranking refresh started.")
			return nil
		}

		fmt.Printf("Ranking refresh started, reloading in %s...\n", viper.GetDuration("refresh.delay"))
		if err := <-done; err != nil {
			return err
		}
		fmt.Println(formatSummary(s.tracker.Summary()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().BoolP("wait", "w", false, "Wait for the delayed reload and print the new summary")
}
