package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedjam/internal/config"
	"feedjam/worker"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler: poll pending jobs and fan out fetches and generations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		poll, err := config.Duration(cfg.Scheduler.PollInterval, time.Minute)
		if err != nil {
			return fmt.Errorf("scheduler.poll_interval: %w", err)
		}
		fetchEvery, err := config.Duration(cfg.Scheduler.FetchInterval, 30*time.Minute)
		if err != nil {
			return fmt.Errorf("scheduler.fetch_interval: %w", err)
		}
		genEvery, err := config.Duration(cfg.Scheduler.GenerateInterval, 30*time.Minute)
		if err != nil {
			return fmt.Errorf("scheduler.generate_interval: %w", err)
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		mgr := worker.NewManager(
			&worker.Interval{
				Name:      "job-poller",
				Every:     poll,
				Immediate: true,
				Run: func(ctx context.Context) error {
					_, err := a.orch.ProcessPending(ctx)
					return err
				},
			},
			&worker.Interval{
				Name:      "fetch-all",
				Every:     fetchEvery,
				Immediate: true,
				Run: func(ctx context.Context) error {
					_, err := a.orch.FetchAll(ctx)
					return err
				},
			},
			&worker.Interval{
				Name:  "generate-all",
				Every: genEvery,
				Run: func(ctx context.Context) error {
					_, err := a.orch.GenerateAll(ctx)
					return err
				},
			},
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			slog.Info("serve: received signal, shutting down", "signal", s.String())
			mgr.Stop()
		}()

		slog.Info("serve: starting workers", "poll", poll, "fetch", fetchEvery, "generate", genEvery)
		return mgr.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
