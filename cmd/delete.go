package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blumenshine/rankwatch/internal/utils"
)

// deleteCmd implements: rankwatch delete <id|keyword>...
var deleteCmd = &cobra.Command{
	Use:     "delete <id|keyword>...",
	Aliases: []string{"rm"},
	Short:   "Stop tracking keywords",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.tracker.Refresh(cmd.Context()); err != nil {
			utils.Log.Warnf("Could not load current keywords: %v", err)
		}

		var failed int
		for _, arg := range args {
			row, ok := resolveKeyword(s.tracker.Rows(), arg)
			if !ok {
				utils.Log.Errorf("No tracked keyword matches %q", arg)
				failed++
				continue
			}
			if err := s.tracker.Delete(cmd.Context(), row.ID); err != nil {
				utils.Log.Errorf("Failed to delete %q: %v", row.Keyword, err)
				failed++
				continue
			}
			fmt.Printf("Deleted %s (%s)\n", row.Keyword, row.ID)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d deletions failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
