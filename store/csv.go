package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pevans/ffharvest/story"
)

// MetadataColumns is the fixed column order of the metadata file.
var MetadataColumns = []string{
	"id", "canon_type", "canon", "author_id", "title", "updated", "published",
	"lang", "genres", "num_reviews", "num_favs", "num_follows", "num_words",
	"rated", "num_chapters",
}

// MetadataCSV is the tabular metadata file: one row per story. Every write
// opens and closes the file so that rows already written survive a crash.
type MetadataCSV struct {
	path string
}

// NewMetadataCSV creates a writer for the file at path.
func NewMetadataCSV(path string) *MetadataCSV {
	return &MetadataCSV{path: path}
}

// Path returns the file location.
func (m *MetadataCSV) Path() string {
	return m.path
}

// Reset truncates the file and writes the header row.
func (m *MetadataCSV) Reset() error {
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}
	return writeRows(f, MetadataColumns)
}

// Append writes one row for md, preceded by the header when the file is
// new or empty.
func (m *MetadataCSV) Append(md *story.Metadata) error {
	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open metadata file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat metadata file: %w", err)
	}

	row, err := MetadataRow(md)
	if err != nil {
		f.Close()
		return err
	}

	if info.Size() == 0 {
		return writeRows(f, MetadataColumns, row)
	}
	return writeRows(f, row)
}

// MetadataRow renders md in MetadataColumns order. Absent fields are empty
// cells and genres are a JSON array.
func MetadataRow(md *story.Metadata) ([]string, error) {
	genres := md.Genres
	if genres == nil {
		genres = []string{}
	}
	genresJSON, err := json.Marshal(genres)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal genres: %w", err)
	}

	return []string{
		md.ID.String(),
		optString(md.CanonType),
		md.Canon,
		strconv.FormatInt(md.AuthorID, 10),
		md.Title,
		optInt64(md.Updated),
		strconv.FormatInt(md.Published, 10),
		md.Language,
		string(genresJSON),
		optInt(md.NumReviews),
		optInt(md.NumFavs),
		optInt(md.NumFollows),
		optInt(md.NumWords),
		optString(md.Rated),
		optInt(md.NumChapters),
	}, nil
}

func writeRows(f *os.File, rows ...[]string) error {
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write metadata row: %w", err)
	}
	return f.Close()
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func optInt64(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}
