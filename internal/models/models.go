package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// AttachmentType represents the kind of media attached to a post
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentVideo AttachmentType = "video"
	AttachmentAudio AttachmentType = "audio"
)

// IsValidAttachmentType checks whether t is a known attachment type
func IsValidAttachmentType(t AttachmentType) bool {
	switch t {
	case AttachmentImage, AttachmentVideo, AttachmentAudio:
		return true
	}
	return false
}

// AttachmentTypeForFile guesses the attachment type from a filename
// extension. Unrecognized extensions are treated as images since that is the
// common case.
func AttachmentTypeForFile(name string) AttachmentType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".mov", ".webm", ".mkv":
		return AttachmentVideo
	case ".mp3", ".ogg", ".wav", ".flac", ".m4a":
		return AttachmentAudio
	default:
		return AttachmentImage
	}
}

// Attachment is a single media reference attached to a post
type Attachment struct {
	URL  string         `json:"url"`
	Type AttachmentType `json:"type"`
}

// Post represents a feed post as known to the client cache and the API.
// LikedByMe and Mine are viewer-relative: the server computes them for the
// authenticated requester and the cache stores them as last received.
type Post struct {
	ID           int64       `json:"id"`
	AuthorID     int64       `json:"author_id"`
	Author       string      `json:"author"`
	AuthorAvatar string      `json:"author_avatar,omitempty"`
	Content      string      `json:"content"`
	Attachment   *Attachment `json:"attachment,omitempty"`
	Likes        int64       `json:"likes"`
	LikedByMe    bool        `json:"liked_by_me"`
	Mine         bool        `json:"mine"`
	Published    time.Time   `json:"published"`
}

// Draft is a post being composed: the text plus an optional path to a local
// media file that gets uploaded on submit.
type Draft struct {
	Content    string `json:"content"`
	AttachPath string `json:"attach_path,omitempty"`
}

// ActionKind represents the kind of a pending (failed, retryable) mutation
type ActionKind string

const (
	ActionSubmit  ActionKind = "submit"
	ActionReact   ActionKind = "react"
	ActionUnreact ActionKind = "unreact"
	ActionDelete  ActionKind = "delete"
)

// IsValidActionKind checks whether k is a known action kind
func IsValidActionKind(k ActionKind) bool {
	switch k {
	case ActionSubmit, ActionReact, ActionUnreact, ActionDelete:
		return true
	}
	return false
}

// PendingAction records the single most recent failed mutation so it can be
// replayed. PostID is zero for submit, which has no server identity yet;
// Draft is set only for submit.
type PendingAction struct {
	Kind   ActionKind `json:"kind"`
	PostID int64      `json:"post_id,omitempty"`
	Draft  *Draft     `json:"draft,omitempty"`
}

// String returns a short human-readable description, e.g. "delete #42".
func (a PendingAction) String() string {
	if a.Kind == ActionSubmit {
		return string(ActionSubmit)
	}
	return fmt.Sprintf("%s #%d", a.Kind, a.PostID)
}
