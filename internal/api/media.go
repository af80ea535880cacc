package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/myles/perch/internal/models"
)

var extRE = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,8}$`)

// handleUploadMedia accepts a multipart upload, stores the bytes under the
// media dir, and returns the attachment reference to embed in a post.
func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.config.MaxUploadBytes+1))
	if err != nil {
		logFor(r.Context()).Error("read upload", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to read upload")
		return
	}
	if int64(len(data)) > s.config.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.config.MaxUploadBytes))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "empty upload")
		return
	}

	contentType := http.DetectContentType(data)
	kind, ok := attachmentKind(contentType)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("unsupported media type %s", contentType))
		return
	}

	name := uuid.NewString()
	if ext := strings.ToLower(filepath.Ext(header.Filename)); extRE.MatchString(ext) {
		name += ext
	}

	diskPath := filepath.Join(s.config.MediaDir, name)
	if err := os.WriteFile(diskPath, data, 0644); err != nil {
		logFor(r.Context()).Error("store upload", "err", err, "name", name)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to store upload")
		return
	}

	if _, err := s.store.RecordMedia(name, contentType, int64(len(data)), viewer.UserID); err != nil {
		os.Remove(diskPath)
		logFor(r.Context()).Error("record upload", "err", err, "name", name)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to record upload")
		return
	}

	writeJSON(w, http.StatusCreated, models.Attachment{URL: "/media/" + name, Type: kind})
}

// handleServeMedia serves uploaded bytes. No auth: media names are
// unguessable UUIDs and posts referencing them are visible to every account.
func (s *Server) handleServeMedia(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "media not found")
		return
	}

	m, err := s.store.GetMedia(name)
	if err != nil {
		logFor(r.Context()).Error("lookup media", "err", err, "name", name)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to look up media")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "media not found")
		return
	}

	f, err := os.Open(filepath.Join(s.config.MediaDir, name))
	if err != nil {
		logFor(r.Context()).Error("open media", "err", err, "name", name)
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "media not found")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", m.ContentType)
	http.ServeContent(w, r, name, m.CreatedAt, f)
}

// attachmentKind maps a sniffed content type to an attachment type.
func attachmentKind(contentType string) (models.AttachmentType, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.AttachmentImage, true
	case strings.HasPrefix(contentType, "video/"):
		return models.AttachmentVideo, true
	case strings.HasPrefix(contentType, "audio/"):
		return models.AttachmentAudio, true
	case contentType == "application/ogg":
		// DetectContentType reports ogg containers as application/ogg
		return models.AttachmentAudio, true
	}
	return "", false
}
