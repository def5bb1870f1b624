package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/blumenshine/rankwatch/internal/server"
	"github.com/blumenshine/rankwatch/internal/utils"
	"github.com/blumenshine/rankwatch/pkg/metrics"
	"github.com/blumenshine/rankwatch/pkg/polling"
	"github.com/blumenshine/rankwatch/pkg/storage"
)

// webCmd represents the web command
var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the rankwatch dashboard backend",
	Long: `Start a JSON API over the tracked keywords for a dashboard front-end, with
Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("bind")
		interval, _ := cmd.Flags().GetDuration("poll-interval")

		s, err := newSession(cmd, func(changes []storage.Change) {
			utils.Log.Infof("Recorded %d keyword changes", len(changes))
		})
		if err != nil {
			return err
		}
		defer s.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg, s.tracker)
		s.client.SetObserver(m.Observe)

		if err := s.tracker.Refresh(cmd.Context()); err != nil {
			utils.Log.Warnf("Initial keyword load failed: %v", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if interval > 0 && s.db != nil {
			go func() {
				err := polling.Run(ctx, polling.Config{Tracker: s.tracker, DB: s.db, Interval: interval, Log: utils.Log})
				if err != nil && !errors.Is(err, context.Canceled) {
					utils.Log.Errorf("Background polling stopped: %v", err)
				}
			}()
		}

		var changes server.ChangeLog
		if s.db != nil {
			changes = s.db
		}
		srv := server.New(s.tracker, changes, reg)
		if err := srv.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(webCmd)

	webCmd.Flags().StringP("bind", "b", ":9999", "Address to bind the server to")
	webCmd.Flags().Duration("poll-interval", 0, "Also re-list keywords into the local database at this interval (0 = off)")
}
