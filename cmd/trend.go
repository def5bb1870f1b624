package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blumenshine/rankwatch/pkg/keywords"
)

// trendCmd implements: rankwatch trend <id|keyword>
var trendCmd = &cobra.Command{
	Use:   "trend <id|keyword>",
	Short: "Show the ranking history of a keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		local, _ := cmd.Flags().GetBool("local")
		if days <= 0 {
			days = viper.GetInt("history.days")
		}

		s, err := newSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		if !local {
			if err := s.tracker.Refresh(cmd.Context()); err != nil && len(s.tracker.Rows()) == 0 {
				return err
			}
		}
		row, ok := resolveKeyword(s.tracker.Rows(), args[0])
		if !ok {
			return fmt.Errorf("no tracked keyword matches %q", args[0])
		}

		var points []keywords.HistoricalPoint
		if local {
			if s.db == nil {
				return errors.New("--local needs the local database")
			}
			since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
			points, err = s.db.LocalHistory(cmd.Context(), row.ID, since)
			if err != nil {
				return err
			}
		} else {
			trend, err := s.tracker.SelectTrend(cmd.Context(), row.ID, days)
			if err != nil {
				return err
			}
			if trend.Error != "" {
				fmt.Fprintf(os.Stderr, "Could not load history: %s\n", trend.Error)
			}
			points = trend.Points
		}

		printTrend(row, days, points)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trendCmd)
	trendCmd.Flags().Int("days", 0, "History window in days (default: history.days from config)")
	trendCmd.Flags().Bool("local", false, "Read positions recorded in the local database instead of the backend")
}

func timeFromMs(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func printTrend(row keywords.Row, days int, points []keywords.HistoricalPoint) {
	fmt.Printf("%s, last %d days\n\n", row.Keyword, days)
	if len(points) == 0 {
		fmt.Println("No ranking history in this window.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "DATE\tPOSITION\t")
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\t\n", timeFromMs(p.Timestamp).Local().Format("2006-01-02 15:04"), formatPosition(p.Position))
	}
	w.Flush()

	first, last := firstRanked(points), lastRanked(points)
	if first != nil && last != nil {
		delta := *last - *first
		fmt.Printf("\nMovement over the window: %s (%s)\n", keywords.DeltaPresentation(&delta), keywords.DeltaPresentation(&delta).Trend)
	}
}

func firstRanked(points []keywords.HistoricalPoint) *int {
	for _, p := range points {
		if p.Position != nil {
			return p.Position
		}
	}
	return nil
}

func lastRanked(points []keywords.HistoricalPoint) *int {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Position != nil {
			return points[i].Position
		}
	}
	return nil
}
