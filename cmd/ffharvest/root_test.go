package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pevans/ffharvest/harvest"
	"github.com/pevans/ffharvest/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const landingFixture = `<html><head><script>
	var userid = 1000;
	var title = 'Story+%d';
</script></head><body>
<div id="pre_story_links"><a href="/book/">Books</a> <a href="/book/Harry-Potter/">Harry Potter</a></div>
<div id="profile_top"><span class="xgray xcontrast_txt">Rated: K - English - Humor - Words: 500 - Published: <span data-xutime="1300000000">Mar 13</span></span></div>
</body></html>`

const chapterFixture = `<html><body><div class="storytext"><p>Once upon a <em>time</em>.</p></div></body></html>`

const noReviewsFixture = `<html><body><table class="table-striped"><tbody><tr><td>No Reviews found.</td></tr></tbody></table></body></html>`

// Test helper: serve single-chapter stories for the given ids
func newArchiveServer(t *testing.T, ids ...int) *httptest.Server {
	pages := make(map[string]string)
	for _, id := range ids {
		pages[fmt.Sprintf("/s/%d", id)] = fmt.Sprintf(landingFixture, id)
		pages[fmt.Sprintf("/s/%d/1", id)] = chapterFixture
		pages[fmt.Sprintf("/r/%d/1", id)] = noReviewsFixture
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Test helper: run the CLI with args and return its output
func runCommand(args ...string) (string, error) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// Test helper: arguments for a quiet harvest against srv
func harvestArgs(srv *httptest.Server, dir, idFile, outDir string, extra ...string) []string {
	args := []string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--base-url", srv.URL,
		"--delay", "0s",
		"--log-level", "error",
		"harvest", idFile,
		"--out-dir", outDir,
		"--quiet",
	}
	return append(args, extra...)
}

func readLines(t *testing.T, path string) []string {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// TestHarvestCommand_FreshAndResume verifies fresh runs rewrite the
// metadata file, resumed runs append to it, and each run is recorded
func TestHarvestCommand_FreshAndResume(t *testing.T) {
	t.Setenv("FFHARVEST_ARCHIVE", "true")
	srv := newArchiveServer(t, 41, 42, 43)

	dir := t.TempDir()
	idFile := filepath.Join(dir, "ids.txt")
	require.NoError(t, os.WriteFile(idFile, []byte("41\n42\n43\n"), 0o600))
	outDir := filepath.Join(dir, "out")
	csvPath := filepath.Join(outDir, store.MetadataFile)

	out, err := runCommand(harvestArgs(srv, dir, idFile, outDir)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Harvested")

	first, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := readLines(t, csvPath)
	require.Len(t, lines, 4, "header and one row per story")
	assert.True(t, strings.HasPrefix(lines[0], "id,"))
	assert.True(t, strings.HasPrefix(lines[1], "41,"))

	chapter, err := os.ReadFile(filepath.Join(outDir, "stories", "42", "1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time.", string(chapter))

	// A second fresh run produces the same file
	_, err = runCommand(harvestArgs(srv, dir, idFile, outDir)...)
	require.NoError(t, err)
	second, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	// Resuming appends the remaining stories
	_, err = runCommand(harvestArgs(srv, dir, idFile, outDir, "--resume-from", "42")...)
	require.NoError(t, err)
	lines = readLines(t, csvPath)
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[4], "42,"))
	assert.True(t, strings.HasPrefix(lines[5], "43,"))
	resumed, err := os.ReadFile(csvPath)
	require.NoError(t, err)

	// An id missing from the list fails before anything is written
	_, err = runCommand(harvestArgs(srv, dir, idFile, outDir, "--resume-from", "999")...)
	require.Error(t, err)
	assert.ErrorIs(t, err, harvest.ErrResumeIDNotFound)
	unchanged, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, string(resumed), string(unchanged))

	archive, err := store.NewArchive(filepath.Join(outDir, "archive.db"))
	require.NoError(t, err)
	defer archive.Close()

	runs, err := archive.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3, "the failed resume should not record a run")
	assert.Equal(t, 2, runs[0].Total)
	assert.Equal(t, 2, runs[0].Harvested)
	require.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, 3, runs[2].Total)
	assert.Equal(t, 3, runs[2].Harvested)
}

// TestHarvestCommand_MissingStory verifies a missing story is counted and
// does not fail the run
func TestHarvestCommand_MissingStory(t *testing.T) {
	t.Setenv("FFHARVEST_ARCHIVE", "false")
	srv := newArchiveServer(t, 41)

	dir := t.TempDir()
	idFile := filepath.Join(dir, "ids.txt")
	require.NoError(t, os.WriteFile(idFile, []byte("41\n77\n"), 0o600))
	outDir := filepath.Join(dir, "out")

	_, err := runCommand(harvestArgs(srv, dir, idFile, outDir)...)
	require.NoError(t, err)

	assert.Len(t, readLines(t, filepath.Join(outDir, store.MetadataFile)), 2)
	assert.NoFileExists(t, filepath.Join(outDir, "archive.db"))
}
