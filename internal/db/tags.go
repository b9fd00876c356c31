package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

func (db *DB) GetTag(name string, parentID, accountID int64) (*Tag, error) {
	var t Tag
	err := db.q.QueryRow(`
		SELECT id, account_id, name, parent_id, created_at, updated_at
		FROM tags WHERE name = ? AND parent_id = ? AND account_id = ?
	`, name, parentID, accountID).Scan(&t.ID, &t.AccountID, &t.Name, &t.ParentID,
		&t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &t, nil
}

// FindOrCreateTag looks a tag up by (name, parent, account) and creates it when
// missing. A unique-constraint violation on insert means a concurrent caller
// won the race; the row is re-read instead of failing.
func (db *DB) FindOrCreateTag(name string, parentID, accountID int64) (*Tag, error) {
	existing, err := db.GetTag(name, parentID, accountID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	result, err := db.q.Exec(`
		INSERT INTO tags (account_id, name, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, accountID, name, parentID, now, now)

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return db.GetTag(name, parentID, accountID)
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Tag{
		ID:        id,
		AccountID: accountID,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (db *DB) TagsForNote(noteID int64) ([]Tag, error) {
	rows, err := db.q.Query(`
		SELECT t.id, t.account_id, t.name, t.parent_id, t.created_at, t.updated_at
		FROM tags t
		JOIN tags_to_note tn ON tn.tag_id = t.id
		WHERE tn.note_id = ?
		ORDER BY t.id ASC
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list note tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Name, &t.ParentID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// AssociateTag links a tag to a note. A duplicate (tag, note) pair is benign
// and ignored.
func (db *DB) AssociateTag(tagID, noteID int64) error {
	_, err := db.q.Exec(`
		INSERT OR IGNORE INTO tags_to_note (tag_id, note_id) VALUES (?, ?)
	`, tagID, noteID)
	if err != nil {
		return fmt.Errorf("failed to associate tag: %w", err)
	}
	return nil
}

func (db *DB) DissociateTag(tagID, noteID int64) error {
	_, err := db.q.Exec(`
		DELETE FROM tags_to_note WHERE tag_id = ? AND note_id = ?
	`, tagID, noteID)
	if err != nil {
		return fmt.Errorf("failed to dissociate tag: %w", err)
	}
	return nil
}

func (db *DB) DeleteTagAssociations(noteID int64) error {
	_, err := db.q.Exec(`DELETE FROM tags_to_note WHERE note_id = ?`, noteID)
	if err != nil {
		return fmt.Errorf("failed to delete tag associations: %w", err)
	}
	return nil
}

// DeleteOrphanTags removes the account's tags with no remaining note
// association and reports how many were collected.
func (db *DB) DeleteOrphanTags(accountID int64) (int64, error) {
	result, err := db.q.Exec(`
		DELETE FROM tags
		WHERE account_id = ?
			AND id NOT IN (SELECT tag_id FROM tags_to_note)
	`, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan tags: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
