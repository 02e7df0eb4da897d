// Package harvest discovers story ids and runs the fetch, extract and
// persist pipeline over them.
package harvest

import (
	"github.com/pevans/ffharvest/story"
)

// IDWriter persists discovered story ids as they are found.
type IDWriter interface {
	WriteIDs(ids []story.ID) error
}

// Sink persists the parts of a story record as the pipeline produces them.
// A write error aborts the whole batch.
type Sink interface {
	WriteMetadata(md *story.Metadata) error
	WriteChapter(id story.ID, ch story.Chapter) error
	WriteReviews(id story.ID, chapter int, reviews []story.Review) error
}

// Progress receives pipeline progress. Calls come from the pipeline's
// goroutine.
type Progress interface {
	// Start is called once with the number of stories to process.
	Start(total int)
	// Story is called before the n-th story (1-based) is harvested.
	Story(id story.ID, n int)
	// Chapter is called after a chapter and its reviews are stored.
	Chapter(id story.ID, chapter, total int)
	// Done is called once when the batch ends, whether or not it
	// completed.
	Done()
}

type nopProgress struct{}

func (nopProgress) Start(int)                  {}
func (nopProgress) Story(story.ID, int)        {}
func (nopProgress) Chapter(story.ID, int, int) {}
func (nopProgress) Done()                      {}
