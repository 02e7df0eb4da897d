package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pevans/ffharvest/story"
)

// LoadIDs reads a newline-delimited story id list. Blank lines are
// ignored; any other line that is not a positive integer is an error.
func LoadIDs(path string) ([]story.ID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open id list: %w", err)
	}
	defer f.Close()

	ids := []story.ID{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		id, err := story.ParseID(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read id list: %w", err)
	}

	return ids, nil
}

// AppendIDs appends ids to the list at path, one per line, creating the
// file if needed. The file is opened and closed on every call.
func AppendIDs(path string, ids []story.ID) error {
	if len(ids) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open id list: %w", err)
	}

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id.String())
		b.WriteByte('\n')
	}

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append ids: %w", err)
	}

	return f.Close()
}

// IDFile is an append-only id list on disk.
type IDFile struct {
	path string
}

// NewIDFile creates an id list writer for path.
func NewIDFile(path string) *IDFile {
	return &IDFile{path: path}
}

// Path returns the file location.
func (f *IDFile) Path() string {
	return f.path
}

// WriteIDs appends ids to the file.
func (f *IDFile) WriteIDs(ids []story.ID) error {
	return AppendIDs(f.path, ids)
}
