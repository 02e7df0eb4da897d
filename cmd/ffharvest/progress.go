package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/pevans/ffharvest/story"
)

// progressTracker renders harvest progress as one bar for the batch and
// one per story being harvested.
type progressTracker struct {
	pw      progress.Writer
	stories *progress.Tracker
	current *progress.Tracker
}

func newProgressTracker(out io.Writer) *progressTracker {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(200 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = true

	return &progressTracker{pw: pw}
}

func (p *progressTracker) Start(total int) {
	p.stories = &progress.Tracker{
		Message: "Stories",
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	p.pw.AppendTracker(p.stories)
	go p.pw.Render()
}

func (p *progressTracker) Story(id story.ID, n int) {
	p.finishCurrent()
	p.stories.SetValue(int64(n - 1))
}

func (p *progressTracker) Chapter(id story.ID, chapter, total int) {
	if p.current == nil {
		p.current = &progress.Tracker{
			Message: fmt.Sprintf("Story %d", id),
			Total:   int64(total),
			Units:   progress.UnitsDefault,
		}
		p.pw.AppendTracker(p.current)
	}
	p.current.SetValue(int64(chapter))
}

func (p *progressTracker) Done() {
	p.finishCurrent()
	if p.stories != nil {
		p.stories.MarkAsDone()
	}

	// Let the renderer draw the final state before stopping it.
	time.Sleep(250 * time.Millisecond)
	p.pw.Stop()
	for p.pw.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

func (p *progressTracker) finishCurrent() {
	if p.current != nil {
		p.current.MarkAsDone()
		p.current = nil
	}
}
