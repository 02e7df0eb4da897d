package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/ffharvest/harvest"
	"github.com/pevans/ffharvest/store"
	"github.com/pevans/ffharvest/story"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

// printResult prints the outcome counts of a harvest, followed by the
// stories that need attention.
func printResult(out io.Writer, result *harvest.Result) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Outcome", "Stories"})
	t.AppendRows([]table.Row{
		{"Harvested", result.Harvested},
		{"Not found", len(result.NotFound)},
		{"Transport failure", len(result.TransportFailed)},
		{"Malformed", len(result.Malformed)},
	})
	t.AppendFooter(table.Row{"Total", fmt.Sprintf("%d/%d", result.Processed(), result.Total)})
	t.Render()

	failures := make([]harvest.Failure, 0, len(result.TransportFailed)+len(result.Malformed))
	failures = append(failures, result.TransportFailed...)
	failures = append(failures, result.Malformed...)
	if len(failures) == 0 {
		return
	}

	ft := newTable(out)
	ft.AppendHeader(table.Row{"Story", "Reason"})
	for _, f := range failures {
		ft.AppendRow(table.Row{f.ID, truncate(f.Reason, 100)})
	}
	ft.Render()
}

// printStoriesTable prints one row per story.
func printStoriesTable(out io.Writer, stories []story.Metadata) {
	if len(stories) == 0 {
		fmt.Fprintln(out, "No stories to display.")
		return
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Title", "Canon", "Lang", "Genres", "Chapters", "Words", "Status", "Updated"})
	for _, md := range stories {
		t.AppendRow(table.Row{
			md.ID,
			truncate(md.Title, 40),
			truncate(md.Canon, 24),
			md.Language,
			strings.Join(md.Genres, "/"),
			optInt(md.NumChapters),
			optInt(md.NumWords),
			md.Status,
			formatEpoch(updatedOrPublished(md)),
		})
	}
	t.Render()
}

// printRunsTable prints one row per harvest run.
func printRunsTable(out io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"Run", "Input", "Started", "Finished", "Total", "Harvested", "Not found", "Transport", "Malformed"})
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Local().Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{
			r.RunID.String()[:8],
			truncate(r.Input, 30),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			finished,
			r.Total,
			r.Harvested,
			r.NotFound,
			r.TransportFailed,
			r.Malformed,
		})
	}
	t.Render()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func optInt(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n)
}

func updatedOrPublished(md story.Metadata) int64 {
	if md.Updated != nil {
		return *md.Updated
	}
	return md.Published
}

func formatEpoch(ts int64) string {
	return time.Unix(ts, 0).Local().Format("2006-01-02")
}
