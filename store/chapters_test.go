package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pevans/ffharvest/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a chapter store in a temp dir
func createTestChapterStore(t *testing.T) *ChapterStore {
	cs, err := NewChapterStore(t.TempDir())
	require.NoError(t, err)
	return cs
}

// TestChapterStore_WriteRead verifies a chapter round trips through disk
func TestChapterStore_WriteRead(t *testing.T) {
	cs := createTestChapterStore(t)

	require.NoError(t, cs.Write(42, story.Chapter{Index: 1, Text: []byte("Once upon a time")}))

	text, err := cs.Read(42, 1)
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time", string(text))
	assert.FileExists(t, filepath.Join(cs.StoryDir(42), "1.txt"))
}

// TestChapterStore_Overwrite verifies a rerun replaces the artifact
func TestChapterStore_Overwrite(t *testing.T) {
	cs := createTestChapterStore(t)

	require.NoError(t, cs.Write(42, story.Chapter{Index: 1, Text: []byte("a much longer first draft")}))
	require.NoError(t, cs.Write(42, story.Chapter{Index: 1, Text: []byte("short")}))

	text, err := cs.Read(42, 1)
	require.NoError(t, err)
	assert.Equal(t, "short", string(text))

	entries, err := os.ReadDir(cs.StoryDir(42))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

// TestChapterStore_EmptyText verifies an empty chapter is still written
func TestChapterStore_EmptyText(t *testing.T) {
	cs := createTestChapterStore(t)

	require.NoError(t, cs.Write(7, story.Chapter{Index: 2}))

	text, err := cs.Read(7, 2)
	require.NoError(t, err)
	assert.Empty(t, text)
}

// TestChapterStore_InvalidIndex verifies chapter numbers start at 1
func TestChapterStore_InvalidIndex(t *testing.T) {
	cs := createTestChapterStore(t)
	assert.Error(t, cs.Write(7, story.Chapter{Index: 0}))
}

// TestChapterStore_ReadMissing verifies a missing chapter is reported
func TestChapterStore_ReadMissing(t *testing.T) {
	cs := createTestChapterStore(t)

	_, err := cs.Read(99, 1)
	assert.ErrorIs(t, err, ErrChapterNotFound)
}

// TestChapterStore_WriteReviews verifies reviews are stored as JSON
func TestChapterStore_WriteReviews(t *testing.T) {
	cs := createTestChapterStore(t)
	user := int64(42)

	require.NoError(t, cs.WriteReviews(5, 1, []story.Review{{UserID: &user, Text: "Great"}}))
	require.NoError(t, cs.WriteReviews(5, 2, nil))

	data, err := os.ReadFile(cs.ReviewsPath(5, 1))
	require.NoError(t, err)
	var reviews []story.Review
	require.NoError(t, json.Unmarshal(data, &reviews))
	require.Len(t, reviews, 1)
	assert.Equal(t, int64(42), *reviews[0].UserID)
	assert.Nil(t, reviews[0].Time)

	data, err = os.ReadFile(cs.ReviewsPath(5, 2))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

// TestChapterStore_Combine verifies chapters are joined in order
func TestChapterStore_Combine(t *testing.T) {
	cs := createTestChapterStore(t)

	require.NoError(t, cs.Write(3, story.Chapter{Index: 2, Text: []byte("Two")}))
	require.NoError(t, cs.Write(3, story.Chapter{Index: 1, Text: []byte("One")}))

	path, err := cs.Combine(3, 2)
	require.NoError(t, err)
	assert.Equal(t, cs.CombinedPath(3), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "One\n\nTwo\n\n", string(data))
}

// TestChapterStore_CombineMissing verifies a gap is an error
func TestChapterStore_CombineMissing(t *testing.T) {
	cs := createTestChapterStore(t)
	require.NoError(t, cs.Write(3, story.Chapter{Index: 1, Text: []byte("One")}))

	_, err := cs.Combine(3, 2)
	assert.ErrorIs(t, err, ErrChapterNotFound)
}
