// Package feed keeps the local post cache consistent with the remote feed
// server: paged reads through a persisted cursor, optimistic single-item
// mutations, and a single-slot retry for the most recent failed mutation.
package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/myles/perch/internal/apiclient"
	"github.com/myles/perch/internal/models"
	"github.com/myles/perch/internal/store"
)

// DefaultPageSize is how many posts a page load asks for when the caller
// does not configure one.
const DefaultPageSize = 10

// Remote is the slice of the feed API the synchronizer needs.
// *apiclient.Client implements it; tests substitute a scripted fake.
type Remote interface {
	Timeline(cursor string, limit int) (*apiclient.TimelineResponse, error)
	Newer(sinceID int64) ([]models.Post, error)
	CreatePost(content string, attachment *models.Attachment) (*models.Post, error)
	DeletePost(id int64) error
	Like(id int64) (*models.Post, error)
	Unlike(id int64) (*models.Post, error)
	UploadMedia(filename string, data []byte) (*models.Attachment, error)
}

// Synchronizer mediates between the local cache and the remote endpoint.
// Mutations run independently of each other; the cache provides per-record
// atomicity and same-ID races are last write wins.
type Synchronizer struct {
	store    *store.Store
	remote   Remote
	pageSize int
}

// New creates a Synchronizer over the given cache and remote.
func New(st *store.Store, remote Remote, pageSize int) *Synchronizer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Synchronizer{store: st, remote: remote, pageSize: pageSize}
}

// Store exposes the underlying cache for read paths (listing posts for
// display is served from the cache, never from the network).
func (s *Synchronizer) Store() *store.Store {
	return s.store
}

// Pending returns the currently armed retryable action, or nil.
func (s *Synchronizer) Pending() (*models.PendingAction, error) {
	return s.store.PendingAction()
}

// LoadNextPage fetches the page bounded by the persisted cursor and merges
// it into the cache. The cursor advances only on success: a failed load
// leaves cache and cursor untouched, so the next call retries the same
// page. Returns the number of posts in the fetched page.
func (s *Synchronizer) LoadNextPage() (int, error) {
	cursor, err := s.store.Cursor()
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}

	page, err := s.remote.Timeline(cursor, s.pageSize)
	if err != nil {
		return 0, err
	}

	if _, err := s.store.UpsertPosts(page.Posts); err != nil {
		return 0, fmt.Errorf("merge page: %w", err)
	}
	if err := s.store.SetCursor(page.NextCursor); err != nil {
		return 0, fmt.Errorf("advance cursor: %w", err)
	}
	return len(page.Posts), nil
}

// Reload fetches the head page of the feed, merges it, and rewinds the
// paging cursor to just past that page. Used by Retry when no action is
// armed and by explicit refresh commands.
func (s *Synchronizer) Reload() (int, error) {
	page, err := s.remote.Timeline("", s.pageSize)
	if err != nil {
		return 0, err
	}

	if _, err := s.store.UpsertPosts(page.Posts); err != nil {
		return 0, fmt.Errorf("merge page: %w", err)
	}
	if err := s.store.SetCursor(page.NextCursor); err != nil {
		return 0, fmt.Errorf("reset cursor: %w", err)
	}
	return len(page.Posts), nil
}

// CheckNewer asks the server for posts newer than the newest cached ID and
// merges them. Returns how many posts were not previously cached.
func (s *Synchronizer) CheckNewer() (int, error) {
	sinceID, err := s.store.MaxPostID()
	if err != nil {
		return 0, fmt.Errorf("newest cached id: %w", err)
	}

	posts, err := s.remote.Newer(sinceID)
	if err != nil {
		return 0, err
	}

	fresh, err := s.store.UpsertPosts(posts)
	if err != nil {
		return 0, fmt.Errorf("merge newer posts: %w", err)
	}
	return fresh, nil
}

// Submit uploads the draft's attachment when it has one, sends the create,
// and caches the canonical post the server returns. Nothing is inserted
// locally before the server confirms. On failure the draft is parked in the
// pending slot so Retry can resubmit it.
func (s *Synchronizer) Submit(draft models.Draft) (*models.Post, error) {
	pending := models.PendingAction{Kind: models.ActionSubmit, Draft: &draft}

	var att *models.Attachment
	if draft.AttachPath != "" {
		data, err := os.ReadFile(draft.AttachPath)
		if err != nil {
			return nil, s.arm(pending, fmt.Errorf("%w: read attachment: %v", apiclient.ErrUnknown, err))
		}
		att, err = s.remote.UploadMedia(filepath.Base(draft.AttachPath), data)
		if err != nil {
			return nil, s.arm(pending, err)
		}
	}

	post, err := s.remote.CreatePost(draft.Content, att)
	if err != nil {
		return nil, s.arm(pending, err)
	}

	// The server has confirmed the create at this point, so a cache
	// failure must not arm a submit replay: replaying would post twice.
	if err := s.store.UpsertPost(post); err != nil {
		return post, fmt.Errorf("cache canonical post: %w", err)
	}
	return post, s.clearPending()
}

// React optimistically bumps the cached like count and flag, then tells the
// server. A failed call leaves the optimistic mutation in place, arms the
// pending slot, and does not roll back; Retry reconciles eventually.
func (s *Synchronizer) React(id int64) error {
	if err := s.store.ApplyReaction(id, +1, true); err != nil {
		return fmt.Errorf("apply reaction: %w", err)
	}

	post, err := s.remote.Like(id)
	if err != nil {
		return s.arm(models.PendingAction{Kind: models.ActionReact, PostID: id}, err)
	}

	if err := s.store.UpsertPost(post); err != nil {
		return fmt.Errorf("cache canonical post: %w", err)
	}
	return s.clearPending()
}

// Unreact is the inverse of React, with the same no-rollback failure
// behavior.
func (s *Synchronizer) Unreact(id int64) error {
	if err := s.store.ApplyReaction(id, -1, false); err != nil {
		return fmt.Errorf("apply reaction: %w", err)
	}

	post, err := s.remote.Unlike(id)
	if err != nil {
		return s.arm(models.PendingAction{Kind: models.ActionUnreact, PostID: id}, err)
	}

	if err := s.store.UpsertPost(post); err != nil {
		return fmt.Errorf("cache canonical post: %w", err)
	}
	return s.clearPending()
}

// Delete optimistically removes the post from the cache, then tells the
// server. Unlike React, a failed delete is rolled back: the prior post is
// restored before the pending slot is armed.
func (s *Synchronizer) Delete(id int64) error {
	prior, err := s.store.GetPost(id)
	if err != nil {
		return fmt.Errorf("snapshot post: %w", err)
	}

	if err := s.store.DeletePost(id); err != nil {
		return fmt.Errorf("remove post: %w", err)
	}

	if err := s.remote.DeletePost(id); err != nil {
		if prior != nil {
			if rbErr := s.store.UpsertPost(prior); rbErr != nil {
				slog.Warn("restore post after failed delete", "id", id, "err", rbErr)
			}
		}
		return s.arm(models.PendingAction{Kind: models.ActionDelete, PostID: id}, err)
	}
	return s.clearPending()
}

// Retry replays the single recorded action, dispatching by kind, or
// performs a full head reload when nothing is recorded. The slot is cleared
// before the replay so a failure during the replay can arm it again.
func (s *Synchronizer) Retry() error {
	action, err := s.store.PendingAction()
	if err != nil {
		return fmt.Errorf("read pending action: %w", err)
	}

	if action == nil {
		_, err := s.Reload()
		return err
	}

	if err := s.store.ClearPendingAction(); err != nil {
		return fmt.Errorf("clear pending action: %w", err)
	}

	switch action.Kind {
	case models.ActionSubmit:
		var draft models.Draft
		if action.Draft != nil {
			draft = *action.Draft
		}
		_, err := s.Submit(draft)
		return err
	case models.ActionReact:
		return s.React(action.PostID)
	case models.ActionUnreact:
		return s.Unreact(action.PostID)
	case models.ActionDelete:
		return s.Delete(action.PostID)
	default:
		return fmt.Errorf("unknown pending action kind: %s", action.Kind)
	}
}

// arm records the failed mutation in the single retry slot, overwriting
// whatever was there, and passes the original failure through.
func (s *Synchronizer) arm(a models.PendingAction, cause error) error {
	if err := s.store.SetPendingAction(a); err != nil {
		slog.Warn("record pending action", "kind", a.Kind, "err", err)
	}
	return cause
}

func (s *Synchronizer) clearPending() error {
	if err := s.store.ClearPendingAction(); err != nil {
		return fmt.Errorf("clear pending action: %w", err)
	}
	return nil
}
