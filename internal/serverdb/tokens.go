package serverdb

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"time"
)

const (
	tokenPrefix = "perch_"
	tokenLength = 32
)

var base62Chars = []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz")

// Token represents a stored session token (without the plaintext secret).
type Token struct {
	ID         int64
	UserID     int64
	Prefix     string
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// GenerateToken creates a new session token for the given user.
// Returns the plaintext token (shown once) and the stored Token record.
func (db *ServerDB) GenerateToken(userID int64) (string, *Token, error) {
	// Validate user exists
	var exists int
	if err := db.conn.QueryRow(`SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return "", nil, fmt.Errorf("user not found: %d", userID)
		}
		return "", nil, fmt.Errorf("check user: %w", err)
	}

	// Generate random base62 secret
	secret := make([]byte, tokenLength)
	for i := range secret {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base62Chars))))
		if err != nil {
			return "", nil, fmt.Errorf("generate random token: %w", err)
		}
		secret[i] = base62Chars[n.Int64()]
	}

	plaintext := tokenPrefix + string(secret)
	prefix := string(secret[:8])

	hash := sha256.Sum256([]byte(plaintext))
	tokenHash := hex.EncodeToString(hash[:])

	id := db.newID()
	now := time.Now().UTC()
	_, err := db.conn.Exec(
		`INSERT INTO tokens (id, user_id, token_hash, token_prefix, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, tokenHash, prefix, now,
	)
	if err != nil {
		return "", nil, fmt.Errorf("insert token: %w", err)
	}

	t := &Token{
		ID:        id,
		UserID:    userID,
		Prefix:    prefix,
		CreatedAt: now,
	}
	return plaintext, t, nil
}

// VerifyToken checks a plaintext token against stored hashes.
// Returns the matching Token and associated User, or nil, nil, nil when the
// token is unknown.
func (db *ServerDB) VerifyToken(plaintext string) (*Token, *User, error) {
	hash := sha256.Sum256([]byte(plaintext))
	tokenHash := hex.EncodeToString(hash[:])

	t := &Token{}
	u := &User{}
	err := db.conn.QueryRow(`
		SELECT t.id, t.user_id, t.token_prefix, t.last_used_at, t.created_at,
		       u.id, u.login, u.name, u.avatar, u.created_at, u.updated_at
		FROM tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = ?
	`, tokenHash).Scan(
		&t.ID, &t.UserID, &t.Prefix, &t.LastUsedAt, &t.CreatedAt,
		&u.ID, &u.Login, &u.Name, &u.Avatar, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		slog.Debug("token not found", "token_hash_prefix", tokenHash[:8])
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("verify token: %w", err)
	}

	// Update last_used_at
	now := time.Now().UTC()
	if _, err := db.conn.Exec(`UPDATE tokens SET last_used_at = ? WHERE id = ?`, now, t.ID); err != nil {
		slog.Warn("update last_used_at", "token_id", t.ID, "err", err)
	}
	t.LastUsedAt = &now

	return t, u, nil
}

// RevokeToken deletes a session token, only if owned by the given user.
func (db *ServerDB) RevokeToken(tokenID, userID int64) error {
	res, err := db.conn.Exec(`DELETE FROM tokens WHERE id = ? AND user_id = ?`, tokenID, userID)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("token not found or not owned by user")
	}
	return nil
}
