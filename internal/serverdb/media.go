package serverdb

import (
	"database/sql"
	"fmt"
	"time"
)

// Media records an uploaded file. The bytes themselves live on disk under
// the server media dir; this row carries the metadata used to serve them.
type Media struct {
	Name        string
	ContentType string
	Size        int64
	UploaderID  int64
	CreatedAt   time.Time
}

// RecordMedia stores the metadata for an uploaded file.
func (db *ServerDB) RecordMedia(name, contentType string, size, uploaderID int64) (*Media, error) {
	if name == "" {
		return nil, fmt.Errorf("media name is required")
	}

	now := time.Now().UTC()
	_, err := db.conn.Exec(
		`INSERT INTO media (name, content_type, size, uploader_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, contentType, size, uploaderID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert media: %w", err)
	}

	return &Media{Name: name, ContentType: contentType, Size: size, UploaderID: uploaderID, CreatedAt: now}, nil
}

// GetMedia returns the metadata for an uploaded file, or nil if not found.
func (db *ServerDB) GetMedia(name string) (*Media, error) {
	m := &Media{}
	err := db.conn.QueryRow(
		`SELECT name, content_type, size, uploader_id, created_at FROM media WHERE name = ?`, name,
	).Scan(&m.Name, &m.ContentType, &m.Size, &m.UploaderID, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return m, nil
}
