package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/fieldkit/internal/config"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:          "ailog",
	Short:        "Aggregate AI conversation logs from multiple platforms",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultAilogPath(), "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig exits with guidance when the config file is missing; every
// subcommand except init needs an existing one.
func loadConfig() *config.Ailog {
	cfg, err := config.LoadAilog(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("Config not found at %s\n", cfgPath)
			fmt.Println("Run 'ailog init' first")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		}
		os.Exit(1)
	}
	return cfg
}

// setupLogging routes diagnostics to stderr so sync progress on stdout
// stays clean.
func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
