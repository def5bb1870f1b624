package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blumenshine/rankwatch/internal/utils"
	"github.com/blumenshine/rankwatch/pkg/polling"
	"github.com/blumenshine/rankwatch/pkg/storage"
	"github.com/blumenshine/rankwatch/pkg/tracker"
)

// pollCmd implements: rankwatch poll
// Flags:
//
//	--interval duration   Poll repeatedly at this interval (0 = poll once)
//	--trigger             Ask the backend to recompute rankings before each poll
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Sync the keyword list into the local database and print changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'rankwatch poll --help'", args[0])
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		trigger, _ := cmd.Flags().GetBool("trigger")

		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		if db == nil {
			return errors.New("poll needs the local database, drop --no-db")
		}
		defer db.Close()

		// The poller owns snapshots, so the tracker gets no store of its own.
		t := tracker.New(tracker.Config{
			Gateway:      client,
			Log:          utils.Log,
			RefreshDelay: viper.GetDuration("refresh.delay"),
			TargetDomain: viper.GetString("tracker.target_domain"),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := polling.Config{
			Tracker:  t,
			DB:       db,
			Interval: interval,
			Log:      utils.Log,
			OnPoll: func(changes []storage.Change, isFirstRun bool) {
				if isFirstRun {
					utils.Log.Infof("Stored %d keywords", len(t.Rows()))
					return
				}
				printChanges(changes)
			},
		}
		if trigger {
			return runTriggeredPolls(ctx, cfg)
		}

		err = polling.Run(ctx, cfg)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().Duration("interval", 0, "Poll repeatedly at this interval, e.g. 1h (default: poll once)")
	pollCmd.Flags().Bool("trigger", false, "Ask the backend to recompute rankings and wait refresh.delay before each poll")
}

// runTriggeredPolls triggers a backend refresh, waits for it, then polls,
// once or every cfg.Interval.
func runTriggeredPolls(ctx context.Context, cfg polling.Config) error {
	for {
		done, err := cfg.Tracker.TriggerRefreshJob(ctx)
		if err != nil {
			utils.Log.Warnf("Could not trigger ranking refresh: %v", err)
		} else if err := <-done; err != nil && ctx.Err() != nil {
			return nil
		}

		if _, err := polling.PollOnce(ctx, cfg); err != nil {
			if cfg.Interval <= 0 {
				return err
			}
			utils.Log.Warnf("Poll failed: %v", err)
		}
		if cfg.Interval <= 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.Interval):
		}
	}
}
