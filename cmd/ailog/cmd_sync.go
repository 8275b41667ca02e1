package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/fieldkit/internal/scheduler"
	"github.com/user/fieldkit/internal/syncer"
)

var (
	syncDryRun bool
	syncNoPush bool
	syncWatch  string
)

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "show what would be done without making changes")
	syncCmd.Flags().BoolVar(&syncNoPush, "no-push", false, "collect and merge locally, but don't push to cloud")
	syncCmd.Flags().StringVar(&syncWatch, "watch", "", "keep running, re-syncing on a cron schedule (e.g. \"@hourly\")")
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Collect logs from all sources and sync to cloud storage",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	s := syncer.New(cfg)
	opts := syncer.Options{DryRun: syncDryRun, Push: !syncNoPush}

	ctx := cmd.Context()
	if syncWatch == "" {
		_, err := s.Run(ctx, opts)
		return err
	}

	sched := scheduler.New()
	if err := sched.Schedule(syncWatch, func() {
		if _, err := s.Run(ctx, opts); err != nil {
			slog.Error("scheduled sync failed", "error", err)
		}
	}); err != nil {
		return err
	}

	// One pass up front, then the schedule takes over.
	if _, err := s.Run(ctx, opts); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()
	slog.Info("watch mode started", "schedule", syncWatch)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("shutting down", "signal", sig)
	return nil
}
