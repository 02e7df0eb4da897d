// Package extract recovers typed story records from the archive's HTML
// pages: landing-page metadata, chapter titles, chapter text, reviews and
// listing pages.
package extract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrNotFound is returned when a story page lacks the landing
	// structure, which is how the archive renders a missing story.
	ErrNotFound = errors.New("story not found")

	// ErrMalformedField is returned when a field the page must carry cannot
	// be parsed. No value is guessed; the story needs operator attention.
	ErrMalformedField = errors.New("malformed field")
)

// FieldError describes a malformed field. It matches ErrMalformedField with
// errors.Is.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("malformed field %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrMalformedField
}

// Extractor parses archive pages according to a Layout.
type Extractor struct {
	layout Layout
}

// NewExtractor creates an extractor for the given layout. Empty layout
// fields fall back to DefaultLayout.
func NewExtractor(layout Layout) *Extractor {
	return &Extractor{layout: layout.WithDefaults()}
}

// Layout returns the layout in use.
func (e *Extractor) Layout() Layout {
	return e.layout
}

func parseDocument(raw []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
