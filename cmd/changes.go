package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent ranking changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("changes are read from the local database, drop --no-db")
		}
		defer db.Close()

		changes, err := db.ListRecentChanges(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Local().Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-7s  %-8s  %-8s  %s\n", ts, c.ChangeType, formatPosition(c.OldPosition), formatPosition(c.NewPosition), c.Keyword)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
}
