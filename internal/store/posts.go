package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/myles/perch/internal/models"
)

// ListPostsOptions contains filter options for listing cached posts
type ListPostsOptions struct {
	Limit    int
	BeforeID int64 // keyset bound: only posts with ID < BeforeID (0 = from the top)
	MineOnly bool
}

const insertPostSQL = `
	INSERT OR IGNORE INTO posts (id, author_id, author, author_avatar, content, attachment_url, attachment_type, likes, liked_by_me, mine, published)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updatePostSQL = `
	UPDATE posts SET author_id = ?, author = ?, author_avatar = ?, content = ?, attachment_url = ?, attachment_type = ?, likes = ?, liked_by_me = ?, mine = ?, published = ?
	WHERE id = ?`

func attachmentColumns(p *models.Post) (url, typ string) {
	if p.Attachment != nil {
		return p.Attachment.URL, string(p.Attachment.Type)
	}
	return "", ""
}

// UpsertPost inserts or replaces a single post by ID. The write is a single
// statement per record, so concurrent upserts of the same ID are last write
// wins.
func (s *Store) UpsertPost(p *models.Post) error {
	return s.withWriteLock(func() error {
		return upsertPost(s.conn, p)
	})
}

// UpsertPosts merges a batch of posts into the cache in one transaction and
// returns how many of them were not previously cached.
func (s *Store) UpsertPosts(posts []models.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	fresh := 0
	err := s.withWriteLock(func() error {
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		for i := range posts {
			p := &posts[i]
			attURL, attType := attachmentColumns(p)
			res, err := tx.Exec(insertPostSQL,
				p.ID, p.AuthorID, p.Author, p.AuthorAvatar, p.Content, attURL, attType, p.Likes, p.LikedByMe, p.Mine, p.Published)
			if err != nil {
				return fmt.Errorf("insert post %d: %w", p.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				fresh++
				continue
			}
			if _, err := tx.Exec(updatePostSQL,
				p.AuthorID, p.Author, p.AuthorAvatar, p.Content, attURL, attType, p.Likes, p.LikedByMe, p.Mine, p.Published, p.ID); err != nil {
				return fmt.Errorf("update post %d: %w", p.ID, err)
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return fresh, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertPost(e execer, p *models.Post) error {
	attURL, attType := attachmentColumns(p)
	res, err := e.Exec(insertPostSQL,
		p.ID, p.AuthorID, p.Author, p.AuthorAvatar, p.Content, attURL, attType, p.Likes, p.LikedByMe, p.Mine, p.Published)
	if err != nil {
		return fmt.Errorf("insert post %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := e.Exec(updatePostSQL,
		p.AuthorID, p.Author, p.AuthorAvatar, p.Content, attURL, attType, p.Likes, p.LikedByMe, p.Mine, p.Published, p.ID); err != nil {
		return fmt.Errorf("update post %d: %w", p.ID, err)
	}
	return nil
}

// GetPost retrieves a cached post by ID, or nil if it is not cached
func (s *Store) GetPost(id int64) (*models.Post, error) {
	var p models.Post
	var attURL, attType string

	err := s.conn.QueryRow(`
		SELECT id, author_id, author, author_avatar, content, attachment_url, attachment_type, likes, liked_by_me, mine, published
		FROM posts WHERE id = ?
	`, id).Scan(
		&p.ID, &p.AuthorID, &p.Author, &p.AuthorAvatar, &p.Content, &attURL, &attType,
		&p.Likes, &p.LikedByMe, &p.Mine, &p.Published,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}

	if attURL != "" {
		p.Attachment = &models.Attachment{URL: attURL, Type: models.AttachmentType(attType)}
	}
	return &p, nil
}

// DeletePost removes a post from the cache. Deleting a post that is not
// cached is not an error.
func (s *Store) DeletePost(id int64) error {
	return s.withWriteLock(func() error {
		if _, err := s.conn.Exec(`DELETE FROM posts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete post %d: %w", id, err)
		}
		return nil
	})
}

// ApplyReaction atomically adjusts a cached post's like count by delta
// (clamped at zero) and sets the liked-by-viewer flag. A post that is not
// cached is left alone.
func (s *Store) ApplyReaction(id int64, delta int64, liked bool) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			UPDATE posts SET likes = MAX(0, likes + ?), liked_by_me = ? WHERE id = ?
		`, delta, liked, id)
		if err != nil {
			return fmt.Errorf("apply reaction to %d: %w", id, err)
		}
		return nil
	})
}

// ListPosts returns cached posts newest first
func (s *Store) ListPosts(opts ListPostsOptions) ([]models.Post, error) {
	query := `
		SELECT id, author_id, author, author_avatar, content, attachment_url, attachment_type, likes, liked_by_me, mine, published
		FROM posts`
	var conditions []string
	var args []any

	if opts.BeforeID > 0 {
		conditions = append(conditions, "id < ?")
		args = append(args, opts.BeforeID)
	}
	if opts.MineOnly {
		conditions = append(conditions, "mine = 1")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		var attURL, attType string
		if err := rows.Scan(
			&p.ID, &p.AuthorID, &p.Author, &p.AuthorAvatar, &p.Content, &attURL, &attType,
			&p.Likes, &p.LikedByMe, &p.Mine, &p.Published,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		if attURL != "" {
			p.Attachment = &models.Attachment{URL: attURL, Type: models.AttachmentType(attType)}
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// MaxPostID returns the highest cached post ID, or 0 for an empty cache.
// The freshness poll uses it as the "newer than" bound.
func (s *Store) MaxPostID() (int64, error) {
	var max int64
	err := s.conn.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM posts`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max post id: %w", err)
	}
	return max, nil
}

// CountPosts returns the number of cached posts
func (s *Store) CountPosts() (int, error) {
	var count int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}
