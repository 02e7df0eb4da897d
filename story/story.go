// Package story defines the records harvested from the archive: story
// metadata, chapter text and reviews.
package story

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultStatus is used when a story's summary line carries no Status
// segment.
const DefaultStatus = "Incomplete"

// ID is the archive's primary key for a story.
type ID int64

// ParseID parses a positive story ID.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid story id %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid story id %q: must be positive", s)
	}
	return ID(n), nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Metadata is the typed record parsed from a story's landing page.
type Metadata struct {
	ID           ID       `json:"id"`
	CanonType    *string  `json:"canon_type,omitempty"`
	Canon        string   `json:"canon"`
	AuthorID     int64    `json:"author_id"`
	Title        string   `json:"title"`
	Language     string   `json:"lang"`
	Published    int64    `json:"published"`
	Updated      *int64   `json:"updated,omitempty"`
	ChapterNames []string `json:"chapter_names"`
	Genres       []string `json:"genres"`
	Status       string   `json:"status"`
	Rated        *string  `json:"rated,omitempty"`

	NumReviews  *int `json:"num_reviews,omitempty"`
	NumFavs     *int `json:"num_favs,omitempty"`
	NumFollows  *int `json:"num_follows,omitempty"`
	NumWords    *int `json:"num_words,omitempty"`
	NumChapters *int `json:"num_chapters,omitempty"`

	// Extra holds summary tags outside the known set. Numeric values are
	// keyed "num_<tag>" with thousands separators removed.
	Extra map[string]string `json:"extra,omitempty"`
}

// ChapterCount returns the number of chapters to fetch: NumChapters when
// it is at least 1, otherwise the number of chapter names, never less
// than 1.
func (m *Metadata) ChapterCount() int {
	if m.NumChapters != nil && *m.NumChapters >= 1 {
		return *m.NumChapters
	}
	if len(m.ChapterNames) > 0 {
		return len(m.ChapterNames)
	}
	return 1
}

// Chapter is the extracted plain text of one chapter. Text is empty when
// the page yielded no content.
type Chapter struct {
	Index int    `json:"index"`
	Text  []byte `json:"-"`
}

// Review is a single reader review of a chapter. A nil UserID means the
// reviewer was anonymous.
type Review struct {
	UserID *int64 `json:"user_id"`
	Time   *int64 `json:"time"`
	Text   string `json:"text"`
}

// Record aggregates everything harvested for one story.
type Record struct {
	Metadata *Metadata
	Chapters map[int]Chapter
	Reviews  map[int][]Review
}

// NewRecord creates an empty record for the given metadata.
func NewRecord(md *Metadata) *Record {
	return &Record{
		Metadata: md,
		Chapters: make(map[int]Chapter),
		Reviews:  make(map[int][]Review),
	}
}
