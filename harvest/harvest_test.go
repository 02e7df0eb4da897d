package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pevans/ffharvest/fetch"
	"github.com/pevans/ffharvest/story"
)

const testBase = "http://ff.test"

// fakeFetcher serves canned pages by URL and records every request.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]error
	requests []string
	onFetch  func(url string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:    make(map[string]string),
		failures: make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, url)
	onFetch := f.onFetch
	f.mu.Unlock()

	if onFetch != nil {
		onFetch(url)
	}
	if err := ctx.Err(); err != nil {
		return nil, &fetch.TransportError{URL: url, Err: err}
	}
	if err, ok := f.failures[url]; ok {
		return nil, err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, &fetch.TransportError{URL: url, StatusCode: 404}
	}
	return []byte(page), nil
}

func (f *fakeFetcher) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.requests...)
}

// fakeSink records everything written to it.
type fakeSink struct {
	metadata []*story.Metadata
	chapters []string
	reviews  map[string][]story.Review
	events   []string
	failOn   string
}

func newFakeSink() *fakeSink {
	return &fakeSink{reviews: make(map[string][]story.Review)}
}

func (s *fakeSink) WriteMetadata(md *story.Metadata) error {
	if s.failOn == "metadata" {
		return errors.New("disk full")
	}
	s.metadata = append(s.metadata, md)
	s.events = append(s.events, fmt.Sprintf("metadata %d", md.ID))
	return nil
}

func (s *fakeSink) WriteChapter(id story.ID, ch story.Chapter) error {
	if s.failOn == "chapter" {
		return errors.New("disk full")
	}
	s.chapters = append(s.chapters, string(ch.Text))
	s.events = append(s.events, fmt.Sprintf("chapter %d/%d", id, ch.Index))
	return nil
}

func (s *fakeSink) WriteReviews(id story.ID, chapter int, reviews []story.Review) error {
	if s.failOn == "reviews" {
		return errors.New("disk full")
	}
	s.reviews[fmt.Sprintf("%d/%d", id, chapter)] = reviews
	s.events = append(s.events, fmt.Sprintf("reviews %d/%d", id, chapter))
	return nil
}

// fakeIDWriter collects written ids per call.
type fakeIDWriter struct {
	batches [][]story.ID
	failOn  int
}

func (w *fakeIDWriter) WriteIDs(ids []story.ID) error {
	if w.failOn > 0 && len(w.batches)+1 == w.failOn {
		return errors.New("disk full")
	}
	w.batches = append(w.batches, ids)
	return nil
}

func (w *fakeIDWriter) All() []story.ID {
	all := []story.ID{}
	for _, b := range w.batches {
		all = append(all, b...)
	}
	return all
}

// recordingProgress records progress callbacks.
type recordingProgress struct {
	started  int
	stories  []story.ID
	chapters []string
	done     bool
}

func (r *recordingProgress) Start(total int)          { r.started = total }
func (r *recordingProgress) Story(id story.ID, n int) { r.stories = append(r.stories, id) }
func (r *recordingProgress) Chapter(id story.ID, chapter, total int) {
	r.chapters = append(r.chapters, fmt.Sprintf("%d:%d/%d", id, chapter, total))
}
func (r *recordingProgress) Done() { r.done = true }

// landingPage renders a story landing page with the given summary line
// and chapter selector options.
func landingPage(title, summary string, options ...string) string {
	var sel string
	if len(options) > 0 {
		sel = `<select id="chap_select">`
		for i, o := range options {
			sel += fmt.Sprintf(`<option value=%d>%s`, i+1, o)
		}
		sel += `</select>`
	}

	return strings.NewReplacer(
		"{{TITLE}}", title,
		"{{SUMMARY}}", summary,
		"{{SELECT}}", sel,
	).Replace(`<html><head><script>
	var userid = 99;
	var title = {{TITLE}};
</script></head><body>
<div id="pre_story_links"><a href="/book/">Books</a> <a href="/book/Harry-Potter/">Harry Potter</a></div>
<div id="profile_top"><span class="xgray xcontrast_txt">{{SUMMARY}}</span></div>
{{SELECT}}
</body></html>`)
}

func chapterPage(text string) string {
	return `<html><body><div class="storytext"><p>` + text + `</p></div></body></html>`
}

func reviewPage(texts ...string) string {
	if len(texts) == 0 {
		return `<html><body><table class="table-striped"><tbody><tr><td>No Reviews found.</td></tr></tbody></table></body></html>`
	}
	var rows string
	for _, t := range texts {
		rows += `<tr><td><a href="/u/7/reader">reader</a><div>` + t + `</div></td></tr>`
	}
	return `<html><body><table class="table-striped"><tbody>` + rows + `</tbody></table></body></html>`
}

const publishedOnly = `<span data-xutime="1300000000">Mar 13</span>`
