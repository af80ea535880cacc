package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/myles/perch/internal/models"
)

// FeedState holds the persisted paging state.
type FeedState struct {
	NextCursor  string
	RefreshedAt *time.Time
}

// GetFeedState returns the current paging state. A cache that has never
// loaded a page reports an empty cursor, meaning the head of the feed.
func (s *Store) GetFeedState() (*FeedState, error) {
	var st FeedState
	var refreshed sql.NullTime

	err := s.conn.QueryRow(`SELECT next_cursor, refreshed_at FROM feed_state WHERE id = 1`).
		Scan(&st.NextCursor, &refreshed)
	if err == sql.ErrNoRows {
		return &FeedState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get feed state: %w", err)
	}

	if refreshed.Valid {
		st.RefreshedAt = &refreshed.Time
	}
	return &st, nil
}

// Cursor returns the persisted next-page cursor ("" = head of the feed)
func (s *Store) Cursor() (string, error) {
	st, err := s.GetFeedState()
	if err != nil {
		return "", err
	}
	return st.NextCursor, nil
}

// SetCursor persists the next-page cursor and stamps the refresh time
func (s *Store) SetCursor(cursor string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			INSERT OR REPLACE INTO feed_state (id, next_cursor, refreshed_at)
			VALUES (1, ?, CURRENT_TIMESTAMP)
		`, cursor)
		if err != nil {
			return fmt.Errorf("set cursor: %w", err)
		}
		return nil
	})
}

// PendingAction returns the recorded retryable action, or nil if none
func (s *Store) PendingAction() (*models.PendingAction, error) {
	var a models.PendingAction
	var draft string

	err := s.conn.QueryRow(`SELECT kind, post_id, draft FROM pending_action WHERE id = 1`).
		Scan(&a.Kind, &a.PostID, &draft)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending action: %w", err)
	}

	if draft != "" {
		var d models.Draft
		if err := json.Unmarshal([]byte(draft), &d); err != nil {
			return nil, fmt.Errorf("decode pending draft: %w", err)
		}
		a.Draft = &d
	}
	return &a, nil
}

// SetPendingAction records a as the single retryable action, replacing any
// previously recorded one.
func (s *Store) SetPendingAction(a models.PendingAction) error {
	if !models.IsValidActionKind(a.Kind) {
		return fmt.Errorf("invalid action kind: %s", a.Kind)
	}

	draft := ""
	if a.Draft != nil {
		data, err := json.Marshal(a.Draft)
		if err != nil {
			return fmt.Errorf("encode pending draft: %w", err)
		}
		draft = string(data)
	}

	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			INSERT OR REPLACE INTO pending_action (id, kind, post_id, draft, failed_at)
			VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
		`, a.Kind, a.PostID, draft)
		if err != nil {
			return fmt.Errorf("set pending action: %w", err)
		}
		return nil
	})
}

// ClearPendingAction empties the retryable-action slot
func (s *Store) ClearPendingAction() error {
	return s.withWriteLock(func() error {
		if _, err := s.conn.Exec(`DELETE FROM pending_action`); err != nil {
			return fmt.Errorf("clear pending action: %w", err)
		}
		return nil
	})
}
