package store

// SchemaVersion is the current cache schema version
const SchemaVersion = 1

const schema = `
-- Cached feed posts, keyed by server-assigned ID
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY,
    author_id INTEGER NOT NULL DEFAULT 0,
    author TEXT NOT NULL DEFAULT '',
    author_avatar TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    attachment_url TEXT NOT NULL DEFAULT '',
    attachment_type TEXT NOT NULL DEFAULT '',
    likes INTEGER NOT NULL DEFAULT 0,
    liked_by_me INTEGER NOT NULL DEFAULT 0,
    mine INTEGER NOT NULL DEFAULT 0,
    published DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Paging state, single row: the opaque cursor for the next page
CREATE TABLE IF NOT EXISTS feed_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    next_cursor TEXT NOT NULL DEFAULT '',
    refreshed_at DATETIME
);

-- Pending retryable action, single row by construction
CREATE TABLE IF NOT EXISTS pending_action (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    kind TEXT NOT NULL,
    post_id INTEGER NOT NULL DEFAULT 0,
    draft TEXT NOT NULL DEFAULT '',
    failed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Schema info table
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_posts_published ON posts(published);
`

// Migration defines a cache database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all cache database migrations in order
var Migrations = []Migration{
	// Version 1 is the initial schema - no migration needed
}
