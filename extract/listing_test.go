package extract

import (
	"errors"
	"testing"

	"github.com/pevans/ffharvest/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPage = `<html><body>
	<center style="margin-top:5px;margin-bottom:5px;">
		1 <a href="/book/Harry-Potter/?&srt=1&lan=1&r=10&p=2">2</a>
		<a href="/book/Harry-Potter/?&srt=1&lan=1&r=10&p=2">Next &#187;</a>
		<a href="/book/Harry-Potter/?&srt=1&lan=1&r=10&p=37">Last</a>
	</center>
	<div class="z-list zhover zpointer">
		<a class="stitle" href="/s/5965870/1/The-Long-Road">The Long Road</a>
	</div>
	<div class="z-list zhover zpointer">
		<a class="stitle" href="/s/12345/1/Second">Second</a>
	</div>
	<div class="z-list zhover zpointer">
		<a class="stitle" href="/s/abc/1/Broken">Broken</a>
	</div>
	<div class="z-list zhover zpointer">
		<a class="stitle" href="bare">Bare</a>
	</div>
</body></html>`

// TestLastPage verifies the page count comes from the Last link
func TestLastPage(t *testing.T) {
	last, err := newTestExtractor().LastPage([]byte(listingPage))
	require.NoError(t, err)
	assert.Equal(t, 37, last)
}

// TestLastPage_SinglePage verifies a listing without pagination
func TestLastPage_SinglePage(t *testing.T) {
	last, err := newTestExtractor().LastPage([]byte(`<html><body><a class="stitle" href="/s/1/1/x">x</a></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, 1, last)
}

// TestLastPage_BadLink verifies an unparsable page number
func TestLastPage_BadLink(t *testing.T) {
	page := `<html><body><a href="/book/x/?p=last">Last</a></body></html>`

	_, err := newTestExtractor().LastPage([]byte(page))
	require.Error(t, err)

	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "last_page", fieldErr.Field)
}

// TestListingStoryIDs verifies ids are read in page order and bad links
// are skipped
func TestListingStoryIDs(t *testing.T) {
	ids, err := newTestExtractor().ListingStoryIDs([]byte(listingPage))
	require.NoError(t, err)

	assert.Equal(t, []story.ID{5965870, 12345}, ids)
}

// TestListingStoryIDs_Empty verifies an empty listing
func TestListingStoryIDs_Empty(t *testing.T) {
	ids, err := newTestExtractor().ListingStoryIDs([]byte(`<html><body></body></html>`))
	require.NoError(t, err)

	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

// TestNewExtractor_Defaults verifies empty layout fields are filled
func TestNewExtractor_Defaults(t *testing.T) {
	e := NewExtractor(Layout{StoryText: "#chapter"})

	assert.Equal(t, "#chapter", e.Layout().StoryText)
	assert.Equal(t, DefaultLayout().Profile, e.Layout().Profile)
}
