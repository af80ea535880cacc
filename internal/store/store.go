package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFile = "feed.db"

// Store wraps the local feed cache database
type Store struct {
	conn *sql.DB
	dir  string
}

// Open opens the cache database under dir, creating and initializing it on
// first use, and runs any pending migrations.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	conn, err := sql.Open("sqlite", filepath.Join(dir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Busy timeout backstops the directory lock for writers that race it
	if _, err := conn.Exec("PRAGMA busy_timeout=750"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn, dir: dir}

	if _, err := s.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.conn.Close()
}

// Dir returns the data directory the cache lives in
func (s *Store) Dir() string {
	return s.dir
}

// withWriteLock executes fn while holding the exclusive cache lock.
func (s *Store) withWriteLock(fn func() error) error {
	lock, err := lockCache(s.dir, lockWait)
	if err != nil {
		return err
	}
	defer lock.Unlock()
	return fn()
}

// Clear removes all cached posts and resets paging state. The pending
// action slot is left untouched.
func (s *Store) Clear() error {
	return s.withWriteLock(func() error {
		if _, err := s.conn.Exec(`DELETE FROM posts`); err != nil {
			return fmt.Errorf("clear posts: %w", err)
		}
		if _, err := s.conn.Exec(`DELETE FROM feed_state`); err != nil {
			return fmt.Errorf("clear feed state: %w", err)
		}
		return nil
	})
}

// RunMigrations runs any pending database migrations
func (s *Store) RunMigrations() (int, error) {
	currentVersion := s.getSchemaVersion()

	if currentVersion >= SchemaVersion {
		return 0, nil
	}

	migrationsRun := 0
	for _, m := range Migrations {
		if m.Version > currentVersion {
			if _, err := s.conn.Exec(m.SQL); err != nil {
				return migrationsRun, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
			if err := s.setSchemaVersion(m.Version); err != nil {
				return migrationsRun, fmt.Errorf("set version %d: %w", m.Version, err)
			}
			migrationsRun++
		}
	}

	// Fresh database, stamp current version
	if currentVersion == 0 {
		if err := s.setSchemaVersion(SchemaVersion); err != nil {
			return migrationsRun, err
		}
	}

	return migrationsRun, nil
}

func (s *Store) getSchemaVersion() int {
	var version string
	err := s.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err != nil {
		return 0
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v
}

func (s *Store) setSchemaVersion(version int) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}
