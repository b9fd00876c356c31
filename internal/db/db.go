package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// so store methods can run standalone or inside a transaction.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

type DB struct {
	conn *sql.DB
	q    Querier
}

func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single pooled connection also keeps
	// :memory: databases coherent across calls.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, q: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'superadmin',
		image TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		active BOOLEAN DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		type INTEGER NOT NULL DEFAULT 0,
		content TEXT NOT NULL DEFAULT '',
		is_archived INTEGER NOT NULL DEFAULT 0,
		is_recycle INTEGER NOT NULL DEFAULT 0,
		is_share INTEGER NOT NULL DEFAULT 0,
		is_top INTEGER NOT NULL DEFAULT 0,
		is_reviewed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (account_id) REFERENCES accounts(id)
	);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		parent_id INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (name, parent_id, account_id)
	);

	CREATE TABLE IF NOT EXISTS tags_to_note (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tag_id INTEGER NOT NULL,
		note_id INTEGER NOT NULL,
		UNIQUE (tag_id, note_id),
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE,
		FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS note_references (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_note_id INTEGER NOT NULL,
		to_note_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (from_note_id, to_note_id),
		FOREIGN KEY (from_note_id) REFERENCES notes(id) ON DELETE CASCADE,
		FOREIGN KEY (to_note_id) REFERENCES notes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS attachments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS follows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		site_url TEXT NOT NULL,
		site_name TEXT,
		site_avatar TEXT,
		follow_type TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (account_id) REFERENCES accounts(id)
	);

	CREATE INDEX IF NOT EXISTS idx_notes_account ON notes(account_id);
	CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at);
	CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updated_at);
	CREATE INDEX IF NOT EXISTS idx_tags_account ON tags(account_id);
	CREATE INDEX IF NOT EXISTS idx_ttn_note ON tags_to_note(note_id);
	CREATE INDEX IF NOT EXISTS idx_ttn_tag ON tags_to_note(tag_id);
	CREATE INDEX IF NOT EXISTS idx_refs_from ON note_references(from_note_id);
	CREATE INDEX IF NOT EXISTS idx_refs_to ON note_references(to_note_id);
	CREATE INDEX IF NOT EXISTS idx_attachments_note ON attachments(note_id);
	CREATE INDEX IF NOT EXISTS idx_follows_account ON follows(account_id);
	CREATE INDEX IF NOT EXISTS idx_follows_site ON follows(site_url);
	`
	_, err := db.q.Exec(schema)
	return err
}

// WithTx runs fn with a DB bound to a single transaction. All store calls made
// through the passed DB share that transaction; fn returning an error rolls it
// back, otherwise it commits.
func (db *DB) WithTx(fn func(tx *DB) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txdb := &DB{conn: db.conn, q: tx}
	if err := fn(txdb); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}
