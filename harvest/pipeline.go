package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pevans/ffharvest/extract"
	"github.com/pevans/ffharvest/fetch"
	"github.com/pevans/ffharvest/logger"
	"github.com/pevans/ffharvest/story"
)

// ErrSink wraps every error returned by the pipeline's sink.
var ErrSink = errors.New("failed to write output")

// Config configures a Pipeline.
type Config struct {
	// Site builds page URLs. The zero value targets the default archive.
	Site fetch.Site
	// Delay is waited before every chapter fetch and every review fetch.
	Delay time.Duration
	// Layout overrides page selectors; empty fields keep the defaults.
	Layout extract.Layout
	// Progress receives progress updates. Optional.
	Progress Progress
}

// Pipeline harvests stories one at a time: metadata, then each chapter's
// text and reviews in increasing chapter order.
type Pipeline struct {
	fetcher   fetch.Fetcher
	sink      Sink
	site      fetch.Site
	pacer     *fetch.Pacer
	extractor *extract.Extractor
	progress  Progress
	log       logger.Logger
}

// Failure names a story that could not be harvested and why.
type Failure struct {
	ID     story.ID `json:"id"`
	Reason string   `json:"reason"`
}

// Result summarizes a batch.
type Result struct {
	Total           int        `json:"total"`
	Harvested       int        `json:"harvested"`
	NotFound        []story.ID `json:"not_found"`
	TransportFailed []Failure  `json:"transport_failed"`
	Malformed       []Failure  `json:"malformed"`
}

// Processed returns how many stories were attempted.
func (r *Result) Processed() int {
	return r.Harvested + len(r.NotFound) + len(r.TransportFailed) + len(r.Malformed)
}

// NewPipeline creates a pipeline that reads pages through fetcher and
// writes records to sink.
func NewPipeline(fetcher fetch.Fetcher, sink Sink, cfg Config, log logger.Logger) *Pipeline {
	site := cfg.Site
	if site.BaseURL() == "" {
		site = fetch.NewSite("")
	}
	progress := cfg.Progress
	if progress == nil {
		progress = nopProgress{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Pipeline{
		fetcher:   fetcher,
		sink:      sink,
		site:      site,
		pacer:     fetch.NewPacer(cfg.Delay),
		extractor: extract.NewExtractor(cfg.Layout),
		progress:  progress,
		log:       log,
	}
}

// Run harvests ids in order. A story that is missing, unreachable or
// malformed is logged, counted in the result and skipped. Only a sink
// failure or cancellation of ctx stops the batch; the partial result is
// returned with the error.
func (p *Pipeline) Run(ctx context.Context, ids []story.ID) (*Result, error) {
	result := &Result{
		Total:           len(ids),
		NotFound:        []story.ID{},
		TransportFailed: []Failure{},
		Malformed:       []Failure{},
	}

	p.progress.Start(len(ids))
	defer p.progress.Done()

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		p.progress.Story(id, i+1)
		start := time.Now()

		_, err := p.HarvestStory(ctx, id)
		if err == nil {
			result.Harvested++
			p.log.Info("Story harvested",
				logger.Int64("story_id", int64(id)),
				logger.Duration("elapsed", time.Since(start)),
			)
			continue
		}

		if errors.Is(err, ErrSink) {
			return result, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		switch {
		case errors.Is(err, extract.ErrNotFound):
			result.NotFound = append(result.NotFound, id)
			p.log.Warn("Story not found",
				logger.Int64("story_id", int64(id)),
			)
		case errors.Is(err, fetch.ErrTransport):
			result.TransportFailed = append(result.TransportFailed, Failure{ID: id, Reason: err.Error()})
			p.log.Error("Story skipped after transport failure",
				logger.Int64("story_id", int64(id)),
				logger.String("reason", err.Error()),
				logger.Any("tls", fetch.IsTLS(err)),
			)
		default:
			result.Malformed = append(result.Malformed, Failure{ID: id, Reason: err.Error()})
			p.log.Error("Story needs attention: malformed page",
				logger.Int64("story_id", int64(id)),
				logger.String("reason", err.Error()),
			)
		}
	}

	return result, nil
}

// HarvestStory fetches and stores one story. The metadata row is written
// before any chapter is fetched, and each chapter and its reviews are
// written as soon as they are extracted.
//
// NumChapters is overwritten with the number of chapters fetched, so a
// parsed count below 1 is stored as the fallback count.
//
// A chapter or review page that cannot be fetched degrades to empty
// content. Errors on the landing page (missing story, transport failure,
// malformed field) are returned as is; sink errors wrap ErrSink.
func (p *Pipeline) HarvestStory(ctx context.Context, id story.ID) (*story.Record, error) {
	raw, err := p.fetcher.Fetch(ctx, p.site.StoryURL(id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch story %d: %w", id, err)
	}

	md, err := p.extractor.Metadata(id, raw)
	if err != nil {
		return nil, fmt.Errorf("story %d: %w", id, err)
	}

	count := md.ChapterCount()
	md.NumChapters = &count

	if err := p.sink.WriteMetadata(md); err != nil {
		return nil, fmt.Errorf("%w: metadata of story %d: %w", ErrSink, id, err)
	}

	record := story.NewRecord(md)
	for n := 1; n <= count; n++ {
		ch, err := p.harvestChapter(ctx, id, n)
		if err != nil {
			return record, err
		}
		record.Chapters[n] = ch
		if err := p.sink.WriteChapter(id, ch); err != nil {
			return record, fmt.Errorf("%w: chapter %d of story %d: %w", ErrSink, n, id, err)
		}

		reviews, err := p.harvestReviews(ctx, id, n)
		if err != nil {
			return record, err
		}
		record.Reviews[n] = reviews
		if err := p.sink.WriteReviews(id, n, reviews); err != nil {
			return record, fmt.Errorf("%w: reviews of chapter %d of story %d: %w", ErrSink, n, id, err)
		}

		p.progress.Chapter(id, n, count)
	}

	return record, nil
}

// harvestChapter waits, then fetches and extracts chapter n. Only
// cancellation is returned as an error.
func (p *Pipeline) harvestChapter(ctx context.Context, id story.ID, n int) (story.Chapter, error) {
	ch := story.Chapter{Index: n, Text: []byte{}}

	if err := p.pacer.Wait(ctx); err != nil {
		return ch, err
	}

	raw, err := p.fetcher.Fetch(ctx, p.site.ChapterURL(id, n))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ch, ctxErr
		}
		p.log.Warn("Chapter fetch failed, storing empty text",
			logger.Int64("story_id", int64(id)),
			logger.Int("chapter", n),
			logger.Error(err),
		)
		return ch, nil
	}

	text, err := p.extractor.ChapterText(raw)
	if err != nil {
		p.log.Warn("Chapter page unreadable, storing empty text",
			logger.Int64("story_id", int64(id)),
			logger.Int("chapter", n),
			logger.Error(err),
		)
		return ch, nil
	}

	ch.Text = text
	return ch, nil
}

// harvestReviews waits, then fetches and extracts the reviews of chapter
// n. Only cancellation is returned as an error.
func (p *Pipeline) harvestReviews(ctx context.Context, id story.ID, n int) ([]story.Review, error) {
	empty := []story.Review{}

	if err := p.pacer.Wait(ctx); err != nil {
		return empty, err
	}

	raw, err := p.fetcher.Fetch(ctx, p.site.ReviewsURL(id, n))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return empty, ctxErr
		}
		p.log.Warn("Review fetch failed, storing no reviews",
			logger.Int64("story_id", int64(id)),
			logger.Int("chapter", n),
			logger.Error(err),
		)
		return empty, nil
	}

	reviews, err := p.extractor.Reviews(raw)
	if err != nil {
		p.log.Warn("Review page unreadable, storing no reviews",
			logger.Int64("story_id", int64(id)),
			logger.Int("chapter", n),
			logger.Error(err),
		)
		return empty, nil
	}

	return reviews, nil
}
