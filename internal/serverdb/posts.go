package serverdb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/myles/perch/internal/models"
)

// Sentinel errors for post operations.
var (
	ErrPostNotFound  = errors.New("post not found")
	ErrNotPostAuthor = errors.New("post belongs to another user")
)

// postSelect returns posts with viewer-relative columns. The viewer ID is
// bound twice, for liked_by_me and mine, before any other arguments.
const postSelect = `
	SELECT p.id, p.author_id,
	       COALESCE(NULLIF(u.name, ''), u.login) AS author,
	       u.avatar, p.content, p.attachment_url, p.attachment_type,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS likes,
	       EXISTS(SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = ?) AS liked_by_me,
	       p.author_id = ? AS mine,
	       p.created_at
	FROM posts p
	JOIN users u ON u.id = p.author_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	var attURL, attType string
	err := row.Scan(
		&p.ID, &p.AuthorID, &p.Author, &p.AuthorAvatar, &p.Content, &attURL, &attType,
		&p.Likes, &p.LikedByMe, &p.Mine, &p.Published,
	)
	if err != nil {
		return nil, err
	}
	if attURL != "" {
		p.Attachment = &models.Attachment{URL: attURL, Type: models.AttachmentType(attType)}
	}
	return &p, nil
}

// CreatePost inserts a new post and returns it in canonical form.
func (db *ServerDB) CreatePost(authorID int64, content, attachmentURL, attachmentType string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" && attachmentURL == "" {
		return nil, fmt.Errorf("post content is required")
	}

	id := db.newID()
	now := time.Now().UTC()
	_, err := db.conn.Exec(
		`INSERT INTO posts (id, author_id, content, attachment_url, attachment_type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, authorID, content, attachmentURL, attachmentType, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	return db.GetPost(id, authorID)
}

// GetPost returns the post with the given ID as seen by viewerID, or nil if
// not found.
func (db *ServerDB) GetPost(id, viewerID int64) (*models.Post, error) {
	p, err := scanPost(db.conn.QueryRow(postSelect+` WHERE p.id = ?`, viewerID, viewerID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return p, nil
}

// DeletePost deletes a post, only if authored by the given user. Returns
// ErrPostNotFound or ErrNotPostAuthor on failure.
func (db *ServerDB) DeletePost(id, authorID int64) error {
	res, err := db.conn.Exec(`DELETE FROM posts WHERE id = ? AND author_id = ?`, id, authorID)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	var exists int
	err = db.conn.QueryRow(`SELECT 1 FROM posts WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return ErrNotPostAuthor
}

// Timeline returns up to limit posts newest first, as seen by viewerID.
// beforeID bounds the page to posts with smaller IDs; 0 starts from the top.
func (db *ServerDB) Timeline(viewerID, beforeID int64, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = 10
	}

	query := postSelect
	args := []any{viewerID, viewerID}
	if beforeID > 0 {
		query += ` WHERE p.id < ?`
		args = append(args, beforeID)
	}
	query += ` ORDER BY p.id DESC LIMIT ?`
	args = append(args, limit)

	return db.queryPosts(query, args...)
}

// Newer returns up to limit posts with IDs greater than sinceID, oldest
// first, as seen by viewerID.
func (db *ServerDB) Newer(viewerID, sinceID int64, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = 10
	}

	query := postSelect + ` WHERE p.id > ? ORDER BY p.id ASC LIMIT ?`
	return db.queryPosts(query, viewerID, viewerID, sinceID, limit)
}

func (db *ServerDB) queryPosts(query string, args ...any) ([]models.Post, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query posts: iterate: %w", err)
	}
	return posts, nil
}

// Like records userID's like on a post and returns the canonical post.
// Liking a post twice is not an error; the like count is unchanged.
func (db *ServerDB) Like(postID, userID int64) (*models.Post, error) {
	var exists int
	err := db.conn.QueryRow(`SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("like post %d: %w", postID, err)
	}

	now := time.Now().UTC()
	if _, err := db.conn.Exec(
		`INSERT OR IGNORE INTO likes (post_id, user_id, created_at) VALUES (?, ?, ?)`,
		postID, userID, now,
	); err != nil {
		return nil, fmt.Errorf("like post %d: %w", postID, err)
	}

	return db.GetPost(postID, userID)
}

// Unlike removes userID's like from a post and returns the canonical post.
// Unliking a post that was not liked is not an error.
func (db *ServerDB) Unlike(postID, userID int64) (*models.Post, error) {
	var exists int
	err := db.conn.QueryRow(`SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unlike post %d: %w", postID, err)
	}

	if _, err := db.conn.Exec(
		`DELETE FROM likes WHERE post_id = ? AND user_id = ?`, postID, userID,
	); err != nil {
		return nil, fmt.Errorf("unlike post %d: %w", postID, err)
	}

	return db.GetPost(postID, userID)
}
