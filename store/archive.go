// Package store persists harvested stories: the id list, the metadata CSV,
// per-chapter text files and an optional SQLite archive served over HTTP.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/ffharvest/story"
)

// Custom errors for archive operations
var (
	ErrStoryNotFound   = errors.New("story not found")
	ErrChapterNotFound = errors.New("chapter not found")
	ErrRunNotFound     = errors.New("run not found")
)

// Archive stores harvested stories, chapters, reviews and run history in
// SQLite. Writes are upserts so that reruns replace earlier rows.
type Archive struct {
	db *sql.DB
}

// StoryFilter represents filtering options for listing stories.
type StoryFilter struct {
	Canon    *string
	Language *string
	Genre    *string
	Limit    int
	Offset   int
}

// Run records one harvest invocation.
type Run struct {
	RunID           uuid.UUID  `json:"run_id"`
	Input           string     `json:"input"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Total           int        `json:"total"`
	Harvested       int        `json:"harvested"`
	NotFound        int        `json:"not_found"`
	TransportFailed int        `json:"transport_failed"`
	Malformed       int        `json:"malformed"`
}

// NewArchive opens (creating if needed) the archive database at dbPath.
func NewArchive(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	archive := &Archive{db: db}
	if err := archive.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return archive, nil
}

// initSchema creates the archive tables if they don't exist.
func (a *Archive) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stories (
		id INTEGER PRIMARY KEY,
		canon_type TEXT,
		canon TEXT NOT NULL,
		author_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		lang TEXT NOT NULL,
		published INTEGER NOT NULL,
		updated INTEGER,
		status TEXT NOT NULL,
		rated TEXT,
		num_reviews INTEGER,
		num_favs INTEGER,
		num_follows INTEGER,
		num_words INTEGER,
		num_chapters INTEGER,
		genres TEXT NOT NULL,
		chapter_names TEXT NOT NULL,
		extra TEXT,
		harvested_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chapters (
		story_id INTEGER NOT NULL,
		chapter INTEGER NOT NULL,
		text BLOB NOT NULL,
		harvested_at TEXT NOT NULL,
		PRIMARY KEY (story_id, chapter)
	);

	CREATE TABLE IF NOT EXISTS reviews (
		story_id INTEGER NOT NULL,
		chapter INTEGER NOT NULL,
		position INTEGER NOT NULL,
		user_id INTEGER,
		time INTEGER,
		text TEXT NOT NULL,
		PRIMARY KEY (story_id, chapter, position)
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		input TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		total INTEGER NOT NULL DEFAULT 0,
		harvested INTEGER NOT NULL DEFAULT 0,
		not_found INTEGER NOT NULL DEFAULT 0,
		transport_failed INTEGER NOT NULL DEFAULT 0,
		malformed INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := a.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveMetadata inserts or replaces a story's metadata row.
func (a *Archive) SaveMetadata(md *story.Metadata) error {
	genres, err := marshalStrings(md.Genres)
	if err != nil {
		return fmt.Errorf("failed to marshal genres: %w", err)
	}
	chapterNames, err := marshalStrings(md.ChapterNames)
	if err != nil {
		return fmt.Errorf("failed to marshal chapter_names: %w", err)
	}

	var extraJSON *string
	if len(md.Extra) > 0 {
		data, err := json.Marshal(md.Extra)
		if err != nil {
			return fmt.Errorf("failed to marshal extra: %w", err)
		}
		s := string(data)
		extraJSON = &s
	}

	query := `
		INSERT OR REPLACE INTO stories (
			id, canon_type, canon, author_id, title, lang, published, updated,
			status, rated, num_reviews, num_favs, num_follows, num_words,
			num_chapters, genres, chapter_names, extra, harvested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	_, err = a.db.Exec(query,
		int64(md.ID),
		md.CanonType,
		md.Canon,
		md.AuthorID,
		md.Title,
		md.Language,
		md.Published,
		md.Updated,
		md.Status,
		md.Rated,
		md.NumReviews,
		md.NumFavs,
		md.NumFollows,
		md.NumWords,
		md.NumChapters,
		genres,
		chapterNames,
		extraJSON,
		formatTime(&now),
	)
	if err != nil {
		return fmt.Errorf("failed to save story %d: %w", md.ID, err)
	}

	return nil
}

// SaveChapter inserts or replaces a chapter's text.
func (a *Archive) SaveChapter(id story.ID, ch story.Chapter) error {
	text := ch.Text
	if text == nil {
		text = []byte{}
	}

	now := time.Now()
	_, err := a.db.Exec(
		"INSERT OR REPLACE INTO chapters (story_id, chapter, text, harvested_at) VALUES (?, ?, ?, ?)",
		int64(id), ch.Index, text, formatTime(&now),
	)
	if err != nil {
		return fmt.Errorf("failed to save chapter %d of story %d: %w", ch.Index, id, err)
	}
	return nil
}

// SaveReviews replaces a chapter's reviews in one transaction.
func (a *Archive) SaveReviews(id story.ID, chapter int, reviews []story.Review) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM reviews WHERE story_id = ? AND chapter = ?", int64(id), chapter); err != nil {
		return fmt.Errorf("failed to clear reviews: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO reviews (story_id, chapter, position, user_id, time, text) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range reviews {
		if _, err := stmt.Exec(int64(id), chapter, i, r.UserID, r.Time, r.Text); err != nil {
			return fmt.Errorf("failed to insert review: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reviews: %w", err)
	}
	return nil
}

const storyColumns = `
	id, canon_type, canon, author_id, title, lang, published, updated,
	status, rated, num_reviews, num_favs, num_follows, num_words,
	num_chapters, genres, chapter_names, extra
`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetStory retrieves a story's metadata by id.
func (a *Archive) GetStory(id story.ID) (*story.Metadata, error) {
	row := a.db.QueryRow("SELECT "+storyColumns+" FROM stories WHERE id = ?", int64(id))

	md, err := scanStory(row)
	if err == sql.ErrNoRows {
		return nil, ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query story: %w", err)
	}
	return md, nil
}

// ListStories lists stories with optional filtering, most recently
// updated first.
func (a *Archive) ListStories(filter StoryFilter) ([]story.Metadata, error) {
	query := "SELECT " + storyColumns + " FROM stories"

	var whereClauses []string
	var args []any

	if filter.Canon != nil {
		whereClauses = append(whereClauses, "canon = ?")
		args = append(args, *filter.Canon)
	}
	if filter.Language != nil {
		whereClauses = append(whereClauses, "lang = ?")
		args = append(args, *filter.Language)
	}
	if filter.Genre != nil {
		whereClauses = append(whereClauses, "EXISTS (SELECT 1 FROM json_each(stories.genres) WHERE json_each.value = ?)")
		args = append(args, *filter.Genre)
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY COALESCE(updated, published) DESC, id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	stories := []story.Metadata{}
	for rows.Next() {
		md, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, *md)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stories: %w", err)
	}

	return stories, nil
}

// GetChapter retrieves a chapter's text.
func (a *Archive) GetChapter(id story.ID, chapter int) ([]byte, error) {
	var text []byte
	err := a.db.QueryRow(
		"SELECT text FROM chapters WHERE story_id = ? AND chapter = ?",
		int64(id), chapter,
	).Scan(&text)
	if err == sql.ErrNoRows {
		return nil, ErrChapterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chapter: %w", err)
	}
	if text == nil {
		text = []byte{}
	}
	return text, nil
}

// ListReviews returns a chapter's reviews in page order.
func (a *Archive) ListReviews(id story.ID, chapter int) ([]story.Review, error) {
	rows, err := a.db.Query(
		"SELECT user_id, time, text FROM reviews WHERE story_id = ? AND chapter = ? ORDER BY position",
		int64(id), chapter,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []story.Review{}
	for rows.Next() {
		var userID, ts sql.NullInt64
		var r story.Review
		if err := rows.Scan(&userID, &ts, &r.Text); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if userID.Valid {
			r.UserID = &userID.Int64
		}
		if ts.Valid {
			r.Time = &ts.Int64
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return reviews, nil
}

// StartRun records the start of a harvest and returns it.
func (a *Archive) StartRun(input string, total int) (*Run, error) {
	run := &Run{
		RunID:     uuid.New(),
		Input:     input,
		StartedAt: time.Now().Truncate(0),
		Total:     total,
	}

	_, err := a.db.Exec(
		"INSERT INTO runs (run_id, input, started_at, total) VALUES (?, ?, ?, ?)",
		run.RunID.String(), run.Input, formatTime(&run.StartedAt), run.Total,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, nil
}

// FinishRun stores the outcome counts of run and stamps its finish time.
func (a *Archive) FinishRun(run *Run) error {
	now := time.Now().Truncate(0)
	run.FinishedAt = &now

	result, err := a.db.Exec(`
		UPDATE runs SET finished_at = ?, harvested = ?, not_found = ?,
		       transport_failed = ?, malformed = ?
		WHERE run_id = ?`,
		formatTime(run.FinishedAt), run.Harvested, run.NotFound,
		run.TransportFailed, run.Malformed, run.RunID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}

	return nil
}

// ListRuns lists harvest runs, newest first. A limit of 0 lists all.
func (a *Archive) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT run_id, input, started_at, finished_at, total, harvested,
		       not_found, transport_failed, malformed
		FROM runs
		ORDER BY rowid DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := a.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var runIDStr, startedAtStr string
		var finishedAtStr sql.NullString
		var run Run

		err := rows.Scan(
			&runIDStr, &run.Input, &startedAtStr, &finishedAtStr,
			&run.Total, &run.Harvested, &run.NotFound,
			&run.TransportFailed, &run.Malformed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.RunID, err = uuid.Parse(runIDStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run ID: %w", err)
		}
		run.StartedAt = parseTime(startedAtStr)
		if finishedAtStr.Valid {
			t := parseTime(finishedAtStr.String)
			run.FinishedAt = &t
		}

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// scanStory parses a stories row into metadata.
func scanStory(row rowScanner) (*story.Metadata, error) {
	var id int64
	var canonType, rated, extraJSON sql.NullString
	var updated, numReviews, numFavs, numFollows, numWords, numChapters sql.NullInt64
	var genresJSON, chapterNamesJSON string
	var md story.Metadata

	err := row.Scan(
		&id, &canonType, &md.Canon, &md.AuthorID, &md.Title, &md.Language,
		&md.Published, &updated, &md.Status, &rated,
		&numReviews, &numFavs, &numFollows, &numWords, &numChapters,
		&genresJSON, &chapterNamesJSON, &extraJSON,
	)
	if err != nil {
		return nil, err
	}

	md.ID = story.ID(id)
	if canonType.Valid {
		md.CanonType = &canonType.String
	}
	if rated.Valid {
		md.Rated = &rated.String
	}
	if updated.Valid {
		md.Updated = &updated.Int64
	}
	md.NumReviews = nullInt(numReviews)
	md.NumFavs = nullInt(numFavs)
	md.NumFollows = nullInt(numFollows)
	md.NumWords = nullInt(numWords)
	md.NumChapters = nullInt(numChapters)

	if err := json.Unmarshal([]byte(genresJSON), &md.Genres); err != nil {
		return nil, fmt.Errorf("failed to unmarshal genres: %w", err)
	}
	if err := json.Unmarshal([]byte(chapterNamesJSON), &md.ChapterNames); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chapter_names: %w", err)
	}
	if extraJSON.Valid {
		if err := json.Unmarshal([]byte(extraJSON.String), &md.Extra); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extra: %w", err)
		}
	}

	return &md, nil
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
