package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pevans/ffharvest/config"
	"github.com/pevans/ffharvest/fetch"
	"github.com/pevans/ffharvest/logger"
	"github.com/spf13/cobra"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Global overrides, applied only when the flag is set.
	logLevel string
	delay    time.Duration
	baseURL  string
)

// Execute runs the root command.
func Execute() error {
	// .env is optional; variables already set win.
	_ = godotenv.Load()

	return newRootCommand().ExecuteContext(context.Background())
}

// newRootCommand builds the command tree with global flags reset to their
// defaults.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ffharvest",
		Short: "Harvest stories, chapters and reviews from a fan-fiction archive",
		Long: `ffharvest discovers story ids from the archive's listing pages and
harvests each story's metadata, chapter text and reviews into CSV, text
files and a SQLite archive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.ffharvest/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().DurationVar(&delay, "delay", config.DefaultDelay, "wait before every chapter, review and listing page request")
	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "archive base URL")

	root.AddCommand(newDiscoverCommand())
	root.AddCommand(newHarvestCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newStoriesCommand())
	root.AddCommand(newRunsCommand())
	root.AddCommand(newExportCommand())

	return root
}

// loadConfig loads the configuration and applies the global flags that
// were set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("delay") {
		cfg.Archive.Delay = delay
	}
	if flags.Changed("base-url") {
		cfg.Archive.BaseURL = baseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

func newFetcher(cfg *config.Config) *fetch.Client {
	return fetch.NewClient(fetch.Options{
		UserAgent:         cfg.Archive.UserAgent,
		Timeout:           cfg.Archive.Timeout,
		RequestsPerSecond: cfg.Archive.MaxRPS,
	})
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
