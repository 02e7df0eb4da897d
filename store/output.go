package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pevans/ffharvest/story"
)

// MetadataFile is the name of the metadata CSV inside an output directory.
const MetadataFile = "metadata.csv"

// Output writes harvested records to an output directory: the metadata
// CSV, chapter and review files, and the archive when one is attached.
type Output struct {
	dir      string
	metadata *MetadataCSV
	chapters *ChapterStore
	archive  *Archive
}

// NewOutput prepares dir for writing. It fails when the directory cannot
// be created or written to. archive may be nil.
func NewOutput(dir string, archive *Archive) (*Output, error) {
	chapters, err := NewChapterStore(dir)
	if err != nil {
		return nil, err
	}

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("output directory is not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return &Output{
		dir:      dir,
		metadata: NewMetadataCSV(filepath.Join(dir, MetadataFile)),
		chapters: chapters,
		archive:  archive,
	}, nil
}

// Dir returns the output directory.
func (o *Output) Dir() string {
	return o.dir
}

// Metadata returns the metadata CSV writer.
func (o *Output) Metadata() *MetadataCSV {
	return o.metadata
}

// Chapters returns the chapter file store.
func (o *Output) Chapters() *ChapterStore {
	return o.chapters
}

// Archive returns the attached archive, or nil.
func (o *Output) Archive() *Archive {
	return o.archive
}

// WriteMetadata appends a metadata row and, with an archive, upserts the
// story.
func (o *Output) WriteMetadata(md *story.Metadata) error {
	if err := o.metadata.Append(md); err != nil {
		return err
	}
	if o.archive != nil {
		return o.archive.SaveMetadata(md)
	}
	return nil
}

// WriteChapter writes a chapter's text file and, with an archive, upserts
// the chapter.
func (o *Output) WriteChapter(id story.ID, ch story.Chapter) error {
	if err := o.chapters.Write(id, ch); err != nil {
		return err
	}
	if o.archive != nil {
		return o.archive.SaveChapter(id, ch)
	}
	return nil
}

// WriteReviews writes a chapter's review file and, with an archive,
// replaces the chapter's stored reviews.
func (o *Output) WriteReviews(id story.ID, chapter int, reviews []story.Review) error {
	if err := o.chapters.WriteReviews(id, chapter, reviews); err != nil {
		return err
	}
	if o.archive != nil {
		return o.archive.SaveReviews(id, chapter, reviews)
	}
	return nil
}
