package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the keywords in the local database.",
	Long:  "Prints statistics about the keywords in the local database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("stats are read from the local database, drop --no-db")
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		if stats.Tracked == 0 && stats.Changes == 0 {
			fmt.Println("No data in the database to generate stats. Run 'rankwatch poll' first.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "TRACKED\tRANKED\tPENDING\tCHANGES\tPOSITIONS\t")
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t\n", stats.Tracked, stats.Ranked, stats.Pending, stats.Changes, stats.Positions)
		w.Flush()

		if !stats.LastChange.IsZero() {
			fmt.Printf("\nLast change: %s\n", stats.LastChange.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
