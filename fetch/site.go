package fetch

import (
	"fmt"
	"strings"

	"github.com/pevans/ffharvest/story"
)

// DefaultBaseURL is the archive's root.
const DefaultBaseURL = "https://www.fanfiction.net"

// DefaultListingQuery sorts a listing by update date and filters it to
// English stories of every rating.
const DefaultListingQuery = "&srt=1&lan=1&r=10"

// Site builds the archive's page URLs.
type Site struct {
	base         string
	listingQuery string
}

// NewSite creates a URL builder rooted at base. An empty base selects
// DefaultBaseURL.
func NewSite(base string) Site {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return Site{base: base, listingQuery: DefaultListingQuery}
}

// BaseURL returns the archive root without a trailing slash.
func (s Site) BaseURL() string {
	return s.base
}

// StoryURL is a story's landing page.
func (s Site) StoryURL(id story.ID) string {
	return fmt.Sprintf("%s/s/%d", s.base, id)
}

// ChapterURL is chapter n of a story (1-based).
func (s Site) ChapterURL(id story.ID, n int) string {
	return fmt.Sprintf("%s/s/%d/%d", s.base, id, n)
}

// ReviewsURL is the review page for chapter n of a story.
func (s Site) ReviewsURL(id story.ID, n int) string {
	return fmt.Sprintf("%s/r/%d/%d", s.base, id, n)
}

// ListingURL is page n of a category/collection listing, e.g.
// {base}/book/Harry-Potter/?&srt=1&lan=1&r=10&p=2.
func (s Site) ListingURL(category, collection string, page int) string {
	collection = strings.ReplaceAll(strings.TrimSpace(collection), " ", "-")
	category = strings.Trim(strings.TrimSpace(category), "/")
	return fmt.Sprintf("%s/%s/%s/?%s&p=%d", s.base, category, collection, s.listingQuery, page)
}
