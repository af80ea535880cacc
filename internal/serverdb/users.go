package serverdb

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
)

// ErrLoginTaken is returned by CreateUser when the login is already registered.
var ErrLoginTaken = errors.New("login already taken")

// User represents a registered user.
type User struct {
	ID        int64
	Login     string
	Name      string
	Avatar    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// argon2id parameters for password hashing
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

func hashPassword(password string, salt []byte) string {
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(key)
}

// CreateUser inserts a new user with the given login (lowercased) and
// password. Returns ErrLoginTaken if the login is already registered.
func (db *ServerDB) CreateUser(login, password, name string) (*User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return nil, fmt.Errorf("login is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	id := db.newID()
	now := time.Now().UTC()
	res, err := db.conn.Exec(
		`INSERT OR IGNORE INTO users (id, login, name, password_hash, password_salt, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, login, name, hashPassword(password, salt), hex.EncodeToString(salt), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert user: rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrLoginTaken
	}

	return &User{ID: id, Login: login, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// GetUserByID returns the user with the given ID, or nil if not found.
func (db *ServerDB) GetUserByID(id int64) (*User, error) {
	u := &User{}
	err := db.conn.QueryRow(
		`SELECT id, login, name, avatar, created_at, updated_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Login, &u.Name, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetUserByLogin returns the user with the given login (case-insensitive),
// or nil if not found.
func (db *ServerDB) GetUserByLogin(login string) (*User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	u := &User{}
	err := db.conn.QueryRow(
		`SELECT id, login, name, avatar, created_at, updated_at FROM users WHERE login = ?`, login,
	).Scan(&u.ID, &u.Login, &u.Name, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	return u, nil
}

// VerifyPassword checks the login/password pair and returns the user on
// success. Returns nil, nil when the login is unknown or the password does
// not match, so callers cannot distinguish the two cases.
func (db *ServerDB) VerifyPassword(login, password string) (*User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	u := &User{}
	var storedHash, storedSalt string
	err := db.conn.QueryRow(
		`SELECT id, login, name, avatar, password_hash, password_salt, created_at, updated_at
		 FROM users WHERE login = ?`, login,
	).Scan(&u.ID, &u.Login, &u.Name, &u.Avatar, &storedHash, &storedSalt, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	salt, err := hex.DecodeString(storedSalt)
	if err != nil {
		return nil, fmt.Errorf("verify password: decode salt: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(hashPassword(password, salt)), []byte(storedHash)) != 1 {
		return nil, nil
	}
	return u, nil
}
