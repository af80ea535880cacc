package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/myles/perch/internal/models"
	"github.com/myles/perch/internal/serverdb"
)

// CreatePostRequest is the body of POST /v1/posts. The attachment, if any,
// must reference a previously uploaded media URL.
type CreatePostRequest struct {
	Content    string             `json:"content"`
	Attachment *models.Attachment `json:"attachment,omitempty"`
}

// handleCreatePost creates a post and returns the canonical server copy.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" && req.Attachment == nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}
	if utf8.RuneCountInString(content) > s.config.MaxContentLen {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("content exceeds %d characters", s.config.MaxContentLen))
		return
	}

	var attURL, attType string
	if req.Attachment != nil {
		if !models.IsValidAttachmentType(req.Attachment.Type) {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "unknown attachment type")
			return
		}
		name, ok := strings.CutPrefix(req.Attachment.URL, "/media/")
		if !ok || name == "" || name != path.Base(name) {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid attachment url")
			return
		}
		m, err := s.store.GetMedia(name)
		if err != nil {
			logFor(r.Context()).Error("check attachment", "err", err)
			writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to check attachment")
			return
		}
		if m == nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "attachment was not uploaded")
			return
		}
		attURL = req.Attachment.URL
		attType = string(req.Attachment.Type)
	}

	post, err := s.store.CreatePost(viewer.UserID, content, attURL, attType)
	if err != nil {
		logFor(r.Context()).Error("create post", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to create post")
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// handleDeletePost deletes a post owned by the requester.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid post id")
		return
	}

	err := s.store.DeletePost(id, viewer.UserID)
	switch {
	case errors.Is(err, serverdb.ErrPostNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "post not found")
	case errors.Is(err, serverdb.ErrNotPostAuthor):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "only the author can delete a post")
	case err != nil:
		logFor(r.Context()).Error("delete post", "err", err, "post", id)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to delete post")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleLike records the requester's like and returns the canonical post.
func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.handleReaction(w, r, s.store.Like)
}

// handleUnlike removes the requester's like and returns the canonical post.
func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	s.handleReaction(w, r, s.store.Unlike)
}

func (s *Server) handleReaction(w http.ResponseWriter, r *http.Request, op func(postID, userID int64) (*models.Post, error)) {
	viewer := viewerFrom(r.Context())

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid post id")
		return
	}

	post, err := op(id, viewer.UserID)
	if errors.Is(err, serverdb.ErrPostNotFound) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "post not found")
		return
	}
	if err != nil {
		logFor(r.Context()).Error("reaction", "err", err, "post", id)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to update reaction")
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// pathID parses the {id} path value as a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
