package store

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pevans/ffharvest/story"
)

// APIServer serves the archive read-only over HTTP.
type APIServer struct {
	archive *Archive
}

// NewAPIServer creates a new archive API server.
func NewAPIServer(archive *Archive) *APIServer {
	return &APIServer{
		archive: archive,
	}
}

// SetupRouter configures the Gin router with all archive API routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	api.GET("/stories", s.HandleListStories)
	api.GET("/stories/:id", s.HandleGetStory)
	api.GET("/stories/:id/chapters/:n", s.HandleGetChapter)
	api.GET("/stories/:id/chapters/:n/reviews", s.HandleListReviews)
	api.GET("/runs", s.HandleListRuns)

	return router
}

// ListStoriesResponse represents the response for GET /api/v1/stories.
type ListStoriesResponse struct {
	Stories []story.Metadata `json:"stories"`
	Total   int              `json:"total"`
}

// ListReviewsResponse represents the response for GET
// /api/v1/stories/{id}/chapters/{n}/reviews.
type ListReviewsResponse struct {
	Reviews []story.Review `json:"reviews"`
	Total   int            `json:"total"`
}

// ListRunsResponse represents the response for GET /api/v1/runs.
type ListRunsResponse struct {
	Runs  []Run `json:"runs"`
	Total int   `json:"total"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *APIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrStoryNotFound), errors.Is(err, ErrChapterNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleListStories handles GET /api/v1/stories.
func (s *APIServer) HandleListStories(c *gin.Context) {
	filter := StoryFilter{}

	if canon := c.Query("canon"); canon != "" {
		filter.Canon = &canon
	}
	if lang := c.Query("lang"); lang != "" {
		filter.Language = &lang
	}
	if genre := c.Query("genre"); genre != "" {
		filter.Genre = &genre
	}

	var ok bool
	if filter.Limit, ok = queryInt(c, "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(c, "offset"); !ok {
		return
	}

	stories, err := s.archive.ListStories(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListStoriesResponse{
		Stories: stories,
		Total:   len(stories),
	})
}

// HandleGetStory handles GET /api/v1/stories/{id}.
func (s *APIServer) HandleGetStory(c *gin.Context) {
	id, ok := storyParam(c)
	if !ok {
		return
	}

	md, err := s.archive.GetStory(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, md)
}

// HandleGetChapter handles GET /api/v1/stories/{id}/chapters/{n}. The
// chapter is returned as plain text.
func (s *APIServer) HandleGetChapter(c *gin.Context) {
	id, ok := storyParam(c)
	if !ok {
		return
	}
	n, ok := chapterParam(c)
	if !ok {
		return
	}

	text, err := s.archive.GetChapter(id, n)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", text)
}

// HandleListReviews handles GET /api/v1/stories/{id}/chapters/{n}/reviews.
func (s *APIServer) HandleListReviews(c *gin.Context) {
	id, ok := storyParam(c)
	if !ok {
		return
	}
	n, ok := chapterParam(c)
	if !ok {
		return
	}

	// Reviews of an unknown story are a 404, not an empty list
	if _, err := s.archive.GetStory(id); err != nil {
		s.handleError(c, err)
		return
	}

	reviews, err := s.archive.ListReviews(id, n)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListReviewsResponse{
		Reviews: reviews,
		Total:   len(reviews),
	})
}

// HandleListRuns handles GET /api/v1/runs.
func (s *APIServer) HandleListRuns(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	runs, err := s.archive.ListRuns(limit)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListRunsResponse{
		Runs:  runs,
		Total: len(runs),
	})
}

func storyParam(c *gin.Context) (story.ID, bool) {
	id, err := story.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid story ID"))
		return 0, false
	}
	return id, true
}

func chapterParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid chapter number"))
		return 0, false
	}
	return n, true
}

// queryInt reads an optional non-negative integer query parameter. It
// writes a 400 response and returns false when the value is invalid.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", "invalid "+name+": must be a non-negative integer"))
		return 0, false
	}
	return n, true
}
