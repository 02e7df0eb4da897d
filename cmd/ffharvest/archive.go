package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pevans/ffharvest/logger"
	"github.com/pevans/ffharvest/store"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// openArchive opens the archive at path, or the configured archive when
// path is empty.
func openArchive(cmd *cobra.Command, path string) (*store.Archive, error) {
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		path = cfg.ArchiveDBPath()
	}

	archive, err := store.NewArchive(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	return archive, nil
}

func newServeCommand() *cobra.Command {
	var (
		archivePath string
		addr        string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the archive over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if archivePath == "" {
				archivePath = cfg.ArchiveDBPath()
			}
			if addr == "" {
				addr = cfg.API.Addr
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			archive, err := store.NewArchive(archivePath)
			if err != nil {
				return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
			}
			defer archive.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           store.NewAPIServer(archive).SetupRouter(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("Starting archive API",
					logger.String("addr", addr),
					logger.String("archive", archivePath),
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			log.Info("Shutting down archive API")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "archive database (default from config)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, \":8080\")")

	return cmd
}

func newStoriesCommand() *cobra.Command {
	var (
		archivePath string
		filter      storyFilterFlags
	)

	cmd := &cobra.Command{
		Use:   "stories",
		Short: "List archived stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(cmd, archivePath)
			if err != nil {
				return err
			}
			defer archive.Close()

			stories, err := archive.ListStories(filter.toFilter(cmd))
			if err != nil {
				return err
			}
			printStoriesTable(cmd.OutOrStdout(), stories)
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "archive database (default from config)")
	filter.register(cmd, 50)

	return cmd
}

func newRunsCommand() *cobra.Command {
	var (
		archivePath string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded harvest runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(cmd, archivePath)
			if err != nil {
				return err
			}
			defer archive.Close()

			runs, err := archive.ListRuns(limit)
			if err != nil {
				return err
			}
			printRunsTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "archive database (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 for all)")

	return cmd
}

func newExportCommand() *cobra.Command {
	var (
		archivePath string
		out         string
		filter      storyFilterFlags
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Regenerate a metadata CSV from the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(cmd, archivePath)
			if err != nil {
				return err
			}
			defer archive.Close()

			stories, err := archive.ListStories(filter.toFilter(cmd))
			if err != nil {
				return err
			}

			csv := store.NewMetadataCSV(out)
			if err := csv.Reset(); err != nil {
				return err
			}
			for i := range stories {
				if err := csv.Append(&stories[i]); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d stories to %s\n", len(stories), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "archive database (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", store.MetadataFile, "CSV file to write")
	filter.register(cmd, 0)

	return cmd
}

// storyFilterFlags are the flags shared by commands that select stories.
type storyFilterFlags struct {
	canon string
	lang  string
	genre string
	limit int
}

func (f *storyFilterFlags) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVar(&f.canon, "canon", "", "only stories of this canon")
	cmd.Flags().StringVar(&f.lang, "lang", "", "only stories in this language")
	cmd.Flags().StringVar(&f.genre, "genre", "", "only stories with this genre")
	cmd.Flags().IntVar(&f.limit, "limit", defaultLimit, "maximum number of stories (0 for all)")
}

func (f *storyFilterFlags) toFilter(cmd *cobra.Command) store.StoryFilter {
	filter := store.StoryFilter{Limit: f.limit}
	if cmd.Flags().Changed("canon") {
		filter.Canon = &f.canon
	}
	if cmd.Flags().Changed("lang") {
		filter.Language = &f.lang
	}
	if cmd.Flags().Changed("genre") {
		filter.Genre = &f.genre
	}
	return filter
}
