package main

import (
	"errors"
	"fmt"

	"github.com/pevans/ffharvest/fetch"
	"github.com/pevans/ffharvest/harvest"
	"github.com/pevans/ffharvest/store"
	"github.com/spf13/cobra"
)

func newDiscoverCommand() *cobra.Command {
	var (
		category   string
		collection string
		feedURL    string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Write the ids of every story in a collection to a file",
		Long: `Walk every listing page of a category/collection and append the story
ids found on each page to the output file as soon as the page is parsed.
With --feed, read the ids from an RSS or Atom feed instead.`,
		Example: `  ffharvest discover --category book --collection "Harry Potter" --out ids.txt
  ffharvest discover --feed https://example.com/updates.rss --out ids.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if feedURL == "" && (category == "" || collection == "") {
				return errors.New("either --feed or both --category and --collection are required")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signalContext(cmd)
			defer stop()

			d := harvest.NewDiscoverer(
				newFetcher(cfg),
				fetch.NewSite(cfg.Archive.BaseURL),
				cfg.Archive.Layout,
				cfg.Archive.Delay,
				log,
			)
			d.OnPage = func(page, last, found int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Page %d/%d: %d ids\n", page, last, found)
			}

			ids := store.NewIDFile(out)
			var n int
			if feedURL != "" {
				n, err = d.DiscoverFeed(ctx, feedURL, ids)
			} else {
				n, err = d.Discover(ctx, category, collection, ids)
			}
			if err != nil {
				if n > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d ids were written to %s before the failure\n", n, out)
				}
				return fmt.Errorf("discovery failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d story ids to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "listing category, e.g. book or anime")
	cmd.Flags().StringVar(&collection, "collection", "", "collection within the category, e.g. \"Harry Potter\"")
	cmd.Flags().StringVar(&feedURL, "feed", "", "RSS or Atom feed to read story links from")
	cmd.Flags().StringVarP(&out, "out", "o", "ids.txt", "file to append ids to")

	return cmd
}
