package harvest

import (
	"context"
	"fmt"
	"testing"

	"github.com/pevans/ffharvest/extract"
	"github.com/pevans/ffharvest/fetch"
	"github.com/pevans/ffharvest/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: a listing page with the given ids and a Last link to last
func listingPage(last int, ids ...int) string {
	page := `<html><body>`
	if last > 1 {
		page += fmt.Sprintf(`<a href="/book/Harry-Potter/?&srt=1&lan=1&r=10&p=%d">Last</a>`, last)
	}
	for _, id := range ids {
		page += fmt.Sprintf(`<div class="z-list"><a class="stitle" href="/s/%d/1/Title">Title</a></div>`, id)
	}
	return page + `</body></html>`
}

func newTestDiscoverer(f *fakeFetcher) *Discoverer {
	return NewDiscoverer(f, site, extract.Layout{}, 0, nil)
}

// TestDiscover_AllPages verifies every listing page is fetched once and its
// ids are written in page order
func TestDiscover_AllPages(t *testing.T) {
	f := newFakeFetcher()
	f.pages[site.ListingURL("book", "Harry Potter", 1)] = listingPage(3, 11, 12)
	f.pages[site.ListingURL("book", "Harry Potter", 2)] = listingPage(3, 21)
	f.pages[site.ListingURL("book", "Harry Potter", 3)] = listingPage(3, 31, 32)
	w := &fakeIDWriter{}

	d := newTestDiscoverer(f)
	var pages []int
	d.OnPage = func(page, last, found int) { pages = append(pages, page) }

	n, err := d.Discover(context.Background(), "book", "Harry Potter", w)
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, []story.ID{11, 12, 21, 31, 32}, w.All())
	assert.Len(t, w.batches, 3, "each page should be written as it is parsed")
	assert.Equal(t, []int{1, 2, 3}, pages)
	assert.Equal(t, []string{
		site.ListingURL("book", "Harry Potter", 1),
		site.ListingURL("book", "Harry Potter", 2),
		site.ListingURL("book", "Harry Potter", 3),
	}, f.Requests())
}

// TestDiscover_SinglePage verifies a listing without pagination
func TestDiscover_SinglePage(t *testing.T) {
	f := newFakeFetcher()
	f.pages[site.ListingURL("anime", "Naruto", 1)] = listingPage(1, 5)
	w := &fakeIDWriter{}

	n, err := newTestDiscoverer(f).Discover(context.Background(), "anime", "Naruto", w)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []story.ID{5}, w.All())
	assert.Len(t, f.Requests(), 1)
}

// TestDiscover_FirstPageFailure verifies nothing is written when the
// first page cannot be fetched
func TestDiscover_FirstPageFailure(t *testing.T) {
	f := newFakeFetcher()
	w := &fakeIDWriter{}

	n, err := newTestDiscoverer(f).Discover(context.Background(), "book", "Harry Potter", w)
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrTransport)
	assert.Equal(t, 0, n)
	assert.Empty(t, w.batches)
}

// TestDiscover_LaterPageFailure verifies earlier pages stay persisted
func TestDiscover_LaterPageFailure(t *testing.T) {
	f := newFakeFetcher()
	f.pages[site.ListingURL("book", "Harry Potter", 1)] = listingPage(3, 11, 12)
	f.pages[site.ListingURL("book", "Harry Potter", 2)] = listingPage(3, 21)
	w := &fakeIDWriter{}

	n, err := newTestDiscoverer(f).Discover(context.Background(), "book", "Harry Potter", w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 3")
	assert.Equal(t, 3, n)
	assert.Equal(t, []story.ID{11, 12, 21}, w.All())
}

// TestDiscover_WriteFailure verifies a sink error stops discovery
func TestDiscover_WriteFailure(t *testing.T) {
	f := newFakeFetcher()
	f.pages[site.ListingURL("book", "Harry Potter", 1)] = listingPage(2, 11)
	f.pages[site.ListingURL("book", "Harry Potter", 2)] = listingPage(2, 21)
	w := &fakeIDWriter{failOn: 2}

	n, err := newTestDiscoverer(f).Discover(context.Background(), "book", "Harry Potter", w)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []story.ID{11}, w.All())
}

const storyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Harry Potter updates</title>
	<link>http://ff.test/book/Harry-Potter/</link>
	<item>
		<title>The Long Road</title>
		<link>http://ff.test/s/5965870/1/The-Long-Road</link>
	</item>
	<item>
		<title>Chapter 2 posted</title>
		<link>http://ff.test/s/5965870/2/The-Long-Road</link>
	</item>
	<item>
		<title>Community post</title>
		<link>http://ff.test/forum/general/</link>
	</item>
	<item>
		<title>Guid only</title>
		<guid>http://ff.test/s/12345</guid>
	</item>
</channel>
</rss>`

// TestDiscoverFeed verifies story ids are read from feed item links
func TestDiscoverFeed(t *testing.T) {
	f := newFakeFetcher()
	f.pages["http://ff.test/feed.xml"] = storyFeed
	w := &fakeIDWriter{}

	n, err := newTestDiscoverer(f).DiscoverFeed(context.Background(), "http://ff.test/feed.xml", w)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []story.ID{5965870, 12345}, w.All())
}

// TestDiscoverFeed_Invalid verifies an unparsable feed
func TestDiscoverFeed_Invalid(t *testing.T) {
	f := newFakeFetcher()
	f.pages["http://ff.test/feed.xml"] = "not a feed"
	w := &fakeIDWriter{}

	_, err := newTestDiscoverer(f).DiscoverFeed(context.Background(), "http://ff.test/feed.xml", w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse feed")
	assert.Empty(t, w.batches)
}
