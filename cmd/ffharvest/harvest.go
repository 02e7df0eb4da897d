package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pevans/ffharvest/fetch"
	"github.com/pevans/ffharvest/harvest"
	"github.com/pevans/ffharvest/logger"
	"github.com/pevans/ffharvest/store"
	"github.com/pevans/ffharvest/story"
	"github.com/spf13/cobra"
)

func newHarvestCommand() *cobra.Command {
	var (
		outDir     string
		resumeFrom int64
		combine    bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "harvest <id-file>",
		Short: "Harvest metadata, chapters and reviews for every id in a file",
		Long: `Harvest each story listed in the id file, in order. Metadata rows go to
metadata.csv, chapter text and reviews to stories/<id>/ under the output
directory, and everything to the SQLite archive when it is enabled.

A fresh run truncates metadata.csv. --resume-from continues an interrupted
run at the given id and appends to the existing file.`,
		Example: `  ffharvest harvest ids.txt --out-dir out
  ffharvest harvest ids.txt --out-dir out --resume-from 5965870`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out-dir") {
				cfg.Storage.OutDir = outDir
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			idPath := args[0]
			ids, err := store.LoadIDs(idPath)
			if err != nil {
				return err
			}
			selected, err := harvest.Select(ids, story.ID(resumeFrom))
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.Storage.OutDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			var archive *store.Archive
			if cfg.Storage.Archive {
				archive, err = store.NewArchive(cfg.ArchiveDBPath())
				if err != nil {
					return fmt.Errorf("failed to open archive: %w", err)
				}
				defer archive.Close()
			}

			out, err := store.NewOutput(cfg.Storage.OutDir, archive)
			if err != nil {
				return err
			}
			if resumeFrom == 0 {
				if err := out.Metadata().Reset(); err != nil {
					return err
				}
			}

			var sink harvest.Sink = out
			if combine {
				sink = newCombiningSink(out, log)
			}

			var tracker harvest.Progress
			if !quiet {
				tracker = newProgressTracker(cmd.ErrOrStderr())
			}

			var run *store.Run
			if archive != nil {
				run, err = archive.StartRun(idPath, len(selected))
				if err != nil {
					return err
				}
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			pipeline := harvest.NewPipeline(newFetcher(cfg), sink, harvest.Config{
				Site:     fetch.NewSite(cfg.Archive.BaseURL),
				Delay:    cfg.Archive.Delay,
				Layout:   cfg.Archive.Layout,
				Progress: tracker,
			}, log)

			log.Info("Starting harvest",
				logger.String("ids", idPath),
				logger.Int("stories", len(selected)),
				logger.String("out_dir", cfg.Storage.OutDir),
			)

			result, runErr := pipeline.Run(ctx, selected)

			if run != nil {
				run.Harvested = result.Harvested
				run.NotFound = len(result.NotFound)
				run.TransportFailed = len(result.TransportFailed)
				run.Malformed = len(result.Malformed)
				if err := archive.FinishRun(run); err != nil {
					log.Error("Failed to record run", logger.Error(err))
				}
			}

			printResult(cmd.OutOrStdout(), result)

			if runErr != nil {
				if errors.Is(runErr, harvest.ErrSink) {
					return fmt.Errorf("harvest aborted: %w", runErr)
				}
				return fmt.Errorf("harvest interrupted after %d of %d stories: %w", result.Processed(), result.Total, runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "output directory (default from config, \"out\")")
	cmd.Flags().Int64Var(&resumeFrom, "resume-from", 0, "resume at the first occurrence of this story id")
	cmd.Flags().BoolVar(&combine, "combine", false, "also write each story's chapters to stories/<id>.txt")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not render progress bars")

	return cmd
}

// combiningSink writes through to an Output and concatenates a story's
// chapter files once its last chapter's reviews are stored.
type combiningSink struct {
	*store.Output
	log      logger.Logger
	chapters map[story.ID]int
}

func newCombiningSink(out *store.Output, log logger.Logger) *combiningSink {
	return &combiningSink{
		Output:   out,
		log:      log,
		chapters: make(map[story.ID]int),
	}
}

func (s *combiningSink) WriteMetadata(md *story.Metadata) error {
	if err := s.Output.WriteMetadata(md); err != nil {
		return err
	}
	s.chapters[md.ID] = md.ChapterCount()
	return nil
}

func (s *combiningSink) WriteReviews(id story.ID, chapter int, reviews []story.Review) error {
	if err := s.Output.WriteReviews(id, chapter, reviews); err != nil {
		return err
	}

	n, ok := s.chapters[id]
	if !ok || chapter != n {
		return nil
	}
	delete(s.chapters, id)

	path, err := s.Chapters().Combine(id, n)
	if err != nil {
		return err
	}
	s.log.Debug("Combined story file written",
		logger.Int64("story_id", int64(id)),
		logger.String("path", path),
	)
	return nil
}
