package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blumenshine/rankwatch/internal/utils"
	"github.com/blumenshine/rankwatch/pkg/keywords"
)

// addCmd implements: rankwatch add [keyword...]
// With no arguments, keywords are read from stdin, one per line or
// separated by commas or tabs.
var addCmd = &cobra.Command{
	Use:   "add [keyword...]",
	Short: "Start tracking one or more keywords",
	Example: `  rankwatch add "chicago injury lawyer" "slip and fall attorney"
  cat keywords.txt | rankwatch add`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := readInput(args)
		if len(args) == 0 {
			b, err := io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
			if err != nil {
				return err
			}
			raw = string(b)
		}
		if strings.TrimSpace(raw) == "" {
			return errors.New("no keywords given")
		}

		s, err := newSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		// Refresh first so keywords tracked from elsewhere count as duplicates.
		if err := s.tracker.Refresh(cmd.Context()); err != nil {
			utils.Log.Warnf("Could not load current keywords, duplicates are only checked locally: %s", keywords.CollapseSpaces(err.Error()))
		}

		res, err := s.tracker.AddBulk(cmd.Context(), raw)
		if err != nil {
			return err
		}

		phrases := make([]string, 0, len(res.Rejected))
		for p := range res.Rejected {
			phrases = append(phrases, p)
		}
		sort.Strings(phrases)
		for _, p := range phrases {
			fmt.Fprintf(os.Stderr, "Failed to add %q: %s\n", p, keywords.CollapseSpaces(res.Rejected[p].Error()))
		}
		if res.RefreshErr != nil {
			fmt.Fprintf(os.Stderr, "New keywords are shown as pending until the backend lists them: %s\n", keywords.CollapseSpaces(res.RefreshErr.Error()))
		}

		fmt.Println(res.Message())
		if res.Failed > 0 && res.Added == 0 {
			return fmt.Errorf("no keyword could be added")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
