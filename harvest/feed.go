package harvest

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/ffharvest/logger"
	"github.com/pevans/ffharvest/story"
)

// storyLink matches a story path inside a feed item link, e.g.
// https://www.fanfiction.net/s/5965870/1/Title.
var storyLink = regexp.MustCompile(`/s/(\d+)(?:/|$)`)

// DiscoverFeed writes the ids of the stories linked from an RSS or Atom
// feed to sink. Items that do not link to a story are skipped and ids
// repeated within the feed are written once.
func (d *Discoverer) DiscoverFeed(ctx context.Context, feedURL string, sink IDWriter) (int, error) {
	raw, err := d.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	ids := make([]story.ID, 0, len(feed.Items))
	for _, item := range feed.Items {
		id, ok := feedItemStoryID(item)
		if !ok {
			d.log.Debug("Skipping feed item without story link", logger.String("link", item.Link))
			continue
		}
		ids = append(ids, id)
	}
	ids = dedupe(ids)

	if err := sink.WriteIDs(ids); err != nil {
		return 0, fmt.Errorf("failed to write ids: %w", err)
	}

	d.log.Info("Feed discovered",
		logger.String("feed", feed.Title),
		logger.Int("items", len(feed.Items)),
		logger.Int("ids", len(ids)),
	)

	return len(ids), nil
}

// feedItemStoryID reads a story id from the item's link, falling back to
// its GUID.
func feedItemStoryID(item *gofeed.Item) (story.ID, bool) {
	for _, candidate := range []string{item.Link, item.GUID} {
		m := storyLink.FindStringSubmatch(candidate)
		if m == nil {
			continue
		}
		id, err := story.ParseID(m[1])
		if err != nil {
			continue
		}
		return id, true
	}
	return 0, false
}

func dedupe(ids []story.ID) []story.ID {
	seen := make(map[story.ID]bool, len(ids))
	out := make([]story.ID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
