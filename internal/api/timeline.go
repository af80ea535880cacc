package api

import (
	"net/http"
	"strconv"

	"github.com/myles/perch/internal/models"
)

const defaultPageSize = 10

// TimelineResponse is one page of the feed, newest first.
type TimelineResponse struct {
	Posts      []models.Post `json:"posts"`
	NextCursor string        `json:"next_cursor"`
}

// NewerResponse is the body of GET /v1/timeline/newer.
type NewerResponse struct {
	Posts []models.Post `json:"posts"`
}

// handleTimeline returns one page of the feed. The cursor is opaque to
// clients; it is the ID of the last post of the previous page. An empty page
// echoes the request cursor back so clients always get a next_cursor.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())

	cursor := r.URL.Query().Get("cursor")
	var beforeID int64
	if cursor != "" {
		id, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid cursor")
			return
		}
		beforeID = id
	}

	limit, ok := s.parseLimit(r, defaultPageSize, s.config.MaxPageSize)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid limit")
		return
	}

	posts, err := s.store.Timeline(viewer.UserID, beforeID, limit)
	if err != nil {
		logFor(r.Context()).Error("timeline", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to load timeline")
		return
	}

	next := cursor
	if len(posts) > 0 {
		next = strconv.FormatInt(posts[len(posts)-1].ID, 10)
	}
	if posts == nil {
		posts = []models.Post{}
	}

	writeJSON(w, http.StatusOK, TimelineResponse{Posts: posts, NextCursor: next})
}

// handleNewer returns posts with IDs greater than since_id, oldest first.
func (s *Server) handleNewer(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())

	sinceParam := r.URL.Query().Get("since_id")
	since, err := strconv.ParseInt(sinceParam, 10, 64)
	if sinceParam == "" || err != nil || since < 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid since_id")
		return
	}

	limit, ok := s.parseLimit(r, 100, 500)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid limit")
		return
	}

	posts, err := s.store.Newer(viewer.UserID, since, limit)
	if err != nil {
		logFor(r.Context()).Error("timeline newer", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to load posts")
		return
	}

	if posts == nil {
		posts = []models.Post{}
	}
	writeJSON(w, http.StatusOK, NewerResponse{Posts: posts})
}

// parseLimit reads the optional limit query parameter, clamped to max.
func (s *Server) parseLimit(r *http.Request, def, max int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > max {
		n = max
	}
	return n, true
}
