package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/pevans/ffharvest/extract"
	"github.com/pevans/ffharvest/fetch"
	"github.com/pevans/ffharvest/logger"
)

// Discoverer enumerates story ids from the archive's listing pages and
// feeds.
type Discoverer struct {
	fetcher   fetch.Fetcher
	site      fetch.Site
	extractor *extract.Extractor
	pacer     *fetch.Pacer
	log       logger.Logger

	// OnPage, when set, is called after each listing page is persisted.
	OnPage func(page, last, found int)
}

// NewDiscoverer creates a discoverer. delay is waited before every listing
// page after the first.
func NewDiscoverer(fetcher fetch.Fetcher, site fetch.Site, layout extract.Layout, delay time.Duration, log logger.Logger) *Discoverer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Discoverer{
		fetcher:   fetcher,
		site:      site,
		extractor: extract.NewExtractor(layout),
		pacer:     fetch.NewPacer(delay),
		log:       log,
	}
}

// Discover writes the ids of every story listed under category/collection
// to sink, one page at a time, and returns how many were written.
//
// Pages are persisted as soon as they are parsed. A failure on a later
// page is returned after earlier pages are already written; a failure on
// the first page is returned before anything is written.
func (d *Discoverer) Discover(ctx context.Context, category, collection string, sink IDWriter) (int, error) {
	firstURL := d.site.ListingURL(category, collection, 1)
	raw, err := d.fetcher.Fetch(ctx, firstURL)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch listing page 1: %w", err)
	}

	last, err := d.extractor.LastPage(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}

	d.log.Info("Discovering story ids",
		logger.String("category", category),
		logger.String("collection", collection),
		logger.Int("pages", last),
	)

	total := 0
	for page := 1; page <= last; page++ {
		if page > 1 {
			if err := d.pacer.Wait(ctx); err != nil {
				return total, err
			}
			raw, err = d.fetcher.Fetch(ctx, d.site.ListingURL(category, collection, page))
			if err != nil {
				return total, fmt.Errorf("failed to fetch listing page %d: %w", page, err)
			}
		}

		ids, err := d.extractor.ListingStoryIDs(raw)
		if err != nil {
			return total, fmt.Errorf("failed to parse listing page %d: %w", page, err)
		}
		if err := sink.WriteIDs(ids); err != nil {
			return total, fmt.Errorf("failed to write ids from page %d: %w", page, err)
		}
		total += len(ids)

		d.log.Debug("Listing page stored",
			logger.Int("page", page),
			logger.Int("last", last),
			logger.Int("ids", len(ids)),
		)
		if d.OnPage != nil {
			d.OnPage(page, last, len(ids))
		}
	}

	return total, nil
}
