package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pevans/ffharvest/story"
)

// ChapterStore keeps one text file per chapter under
// {dir}/stories/{id}/{n}.txt, with the chapter's reviews alongside as
// {n}.reviews.json.
type ChapterStore struct {
	dir string
}

// NewChapterStore creates a chapter store rooted at dir, creating the
// stories directory if it doesn't exist.
func NewChapterStore(dir string) (*ChapterStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "stories"), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &ChapterStore{dir: dir}, nil
}

// StoryDir returns the directory holding a story's chapter files.
func (cs *ChapterStore) StoryDir(id story.ID) string {
	return filepath.Join(cs.dir, "stories", id.String())
}

// ChapterPath returns the text file for chapter n.
func (cs *ChapterStore) ChapterPath(id story.ID, n int) string {
	return filepath.Join(cs.StoryDir(id), strconv.Itoa(n)+".txt")
}

// ReviewsPath returns the review file for chapter n.
func (cs *ChapterStore) ReviewsPath(id story.ID, n int) string {
	return filepath.Join(cs.StoryDir(id), strconv.Itoa(n)+".reviews.json")
}

// CombinedPath returns the single-file concatenation of a story.
func (cs *ChapterStore) CombinedPath(id story.ID) string {
	return filepath.Join(cs.dir, "stories", id.String()+".txt")
}

// Write saves a chapter's text, replacing any earlier copy.
func (cs *ChapterStore) Write(id story.ID, ch story.Chapter) error {
	if ch.Index < 1 {
		return fmt.Errorf("invalid chapter index %d", ch.Index)
	}
	if err := os.MkdirAll(cs.StoryDir(id), 0o700); err != nil {
		return fmt.Errorf("failed to create story directory: %w", err)
	}
	return writeFileAtomic(cs.ChapterPath(id, ch.Index), ch.Text)
}

// Read returns a chapter's stored text.
func (cs *ChapterStore) Read(id story.ID, n int) ([]byte, error) {
	data, err := os.ReadFile(cs.ChapterPath(id, n))
	if os.IsNotExist(err) {
		return nil, ErrChapterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chapter: %w", err)
	}
	return data, nil
}

// WriteReviews saves a chapter's reviews as JSON, replacing any earlier
// copy.
func (cs *ChapterStore) WriteReviews(id story.ID, n int, reviews []story.Review) error {
	if reviews == nil {
		reviews = []story.Review{}
	}
	data, err := json.MarshalIndent(reviews, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal reviews: %w", err)
	}
	if err := os.MkdirAll(cs.StoryDir(id), 0o700); err != nil {
		return fmt.Errorf("failed to create story directory: %w", err)
	}
	return writeFileAtomic(cs.ReviewsPath(id, n), data)
}

// Combine concatenates chapters 1..n into the story's combined file,
// separated by a blank line. Missing chapters are an error.
func (cs *ChapterStore) Combine(id story.ID, n int) (string, error) {
	var buf bytes.Buffer
	for i := 1; i <= n; i++ {
		text, err := cs.Read(id, i)
		if err != nil {
			return "", fmt.Errorf("chapter %d: %w", i, err)
		}
		buf.Write(text)
		buf.WriteString("\n\n")
	}

	path := cs.CombinedPath(id)
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileAtomic writes data to a temporary file in the target directory
// and renames it into place, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
