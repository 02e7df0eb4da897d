package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/ffharvest/story"
)

// Metadata extracts a story's metadata from its landing page.
//
// It returns ErrNotFound when the page has no pre-story links region (the
// story does not exist) and a *FieldError when a required field is missing
// or unparsable.
func (e *Extractor) Metadata(id story.ID, raw []byte) (*story.Metadata, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}

	preStoryLinks := doc.Find(e.layout.PreStoryLinks).First()
	if preStoryLinks.Length() == 0 {
		return nil, ErrNotFound
	}
	links := preStoryLinks.Find("a")
	if links.Length() == 0 {
		return nil, &FieldError{Field: "canon", Reason: "pre-story links region has no links"}
	}

	vars, err := parseScriptVars(raw)
	if err != nil {
		return nil, err
	}

	profile := doc.Find(e.layout.Profile).First()
	if profile.Length() == 0 {
		return nil, &FieldError{Field: "profile", Reason: "profile region not found"}
	}

	times, err := epochTimes(profile, e.layout.TimeAttr)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, &FieldError{Field: "published", Reason: "no timestamps in profile"}
	}

	summary := profile.Find(e.layout.Summary).First()
	if summary.Length() == 0 {
		return nil, &FieldError{Field: "summary", Reason: "summary line not found"}
	}
	segments := strings.Split(summary.Text(), "-")
	if len(segments) < 3 {
		return nil, &FieldError{
			Field:  "summary",
			Reason: fmt.Sprintf("expected at least 3 segments, got %d", len(segments)),
		}
	}

	md := &story.Metadata{
		ID:        id,
		Canon:     strings.TrimSpace(links.Last().Text()),
		AuthorID:  vars.AuthorID,
		Title:     vars.Title,
		Language:  strings.TrimSpace(segments[1]),
		Published: times[len(times)-1],
	}

	set := map[string]bool{
		"id":            true,
		"canon":         true,
		"author_id":     true,
		"title":         true,
		"lang":          true,
		"published":     true,
		"chapter_names": true,
		"genres":        true,
	}

	if links.Length() > 1 {
		canonType := strings.TrimSpace(links.First().Text())
		md.CanonType = &canonType
		set["canon_type"] = true
	}
	if len(times) > 1 {
		updated := times[0]
		md.Updated = &updated
		set["updated"] = true
	}

	// Stories without a genre put a tagged segment in the genre slot.
	genreSegment := strings.TrimSpace(segments[2])
	if _, _, tagged := splitTag(genreSegment); tagged {
		md.Genres = []string{}
	} else {
		md.Genres = NormalizeGenres(genreSegment)
	}

	md.ChapterNames = e.chapterNames(doc, md.Title)

	applyTags(md, segments, set)
	if md.Status == "" {
		md.Status = story.DefaultStatus
	}

	if md.NumChapters != nil && *md.NumChapters >= 1 && *md.NumChapters != len(md.ChapterNames) {
		return nil, &FieldError{
			Field:  "chapter_names",
			Reason: fmt.Sprintf("%d chapter names for %d chapters", len(md.ChapterNames), *md.NumChapters),
		}
	}

	return md, nil
}

// epochTimes reads the epoch attribute of every element under sel that
// carries it, in document order.
func epochTimes(sel *goquery.Selection, attr string) ([]int64, error) {
	var times []int64
	var parseErr error

	sel.Find("[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		value, _ := s.Attr(attr)
		t, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			parseErr = &FieldError{Field: attr, Reason: "not an epoch timestamp: " + strconv.Quote(value)}
			return false
		}
		times = append(times, t)
		return true
	})

	return times, parseErr
}

// chapterNames reads the first chapter selector's options. A story without
// a selector has exactly one chapter, named after the story.
func (e *Extractor) chapterNames(doc *goquery.Document, title string) []string {
	options := doc.Find(e.layout.ChapterSelect).First().Find("option")
	if options.Length() == 0 {
		return []string{title}
	}

	labels := make([]string, 0, options.Length())
	options.Each(func(_ int, s *goquery.Selection) {
		labels = append(labels, s.Text())
	})

	return ChapterTitles(labels)
}
