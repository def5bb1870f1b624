package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blumenshine/rankwatch/pkg/keywords"
)

// listCmd implements: rankwatch list
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked keywords and their current positions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		offline, _ := cmd.Flags().GetBool("offline")
		asJSON, _ := cmd.Flags().GetBool("json")
		sortBy, _ := cmd.Flags().GetString("sort")

		s, err := newSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		if !offline {
			if err := s.tracker.Refresh(cmd.Context()); err != nil {
				if len(s.tracker.Rows()) == 0 {
					return err
				}
				fmt.Fprintf(os.Stderr, "Could not reach the backend, showing the last known list: %v\n", err)
			}
		}

		rows := s.tracker.Rows()
		switch sortBy {
		case "rank":
			rows = keywords.SortedByRankThenName(rows)
		case "added":
		default:
			return fmt.Errorf("unknown sort order %q (use rank or added)", sortBy)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Summary  keywords.Summary `json:"summary"`
				Keywords []keywords.Row   `json:"keywords"`
			}{s.tracker.Summary(), rows})
		}

		if len(rows) == 0 {
			fmt.Println("No keywords tracked yet. Add some with 'rankwatch add'.")
			return nil
		}

		target := viper.GetString("tracker.target_domain")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tKEYWORD\tPOSITION\t30D\tURL\tUPDATED\t")
		for _, r := range rows {
			url := r.URL
			if target != "" && url != "" && !r.OnTarget(target) {
				url += " (off-target)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", r.ID, r.Keyword, formatPosition(r.Position),
				keywords.DeltaPresentation(r.Delta30), url, formatTimestamp(r.Timestamp))
		}
		w.Flush()

		fmt.Println()
		fmt.Println(formatSummary(s.tracker.Summary()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("offline", false, "Show the locally stored list without contacting the backend")
	listCmd.Flags().Bool("json", false, "Print keywords and summary as JSON")
	listCmd.Flags().String("sort", "rank", "Sort order: rank (best first, pending last) or added (backend order)")
}

func formatTimestamp(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return timeFromMs(*ms).Local().Format("2006-01-02 15:04")
}

func formatSummary(s keywords.Summary) string {
	avg, best, updated := "-", "-", "never"
	if s.Average != nil {
		avg = fmt.Sprintf("%.1f", *s.Average)
	}
	if s.Best != nil {
		best = fmt.Sprintf("#%d", *s.Best)
	}
	if s.LastUpdated != nil {
		updated = s.LastUpdated.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%d keywords (%d ranked, %d pending) • average %s • best %s • last updated %s",
		s.Total, s.Ranked, s.Pending, avg, best, updated)
}
