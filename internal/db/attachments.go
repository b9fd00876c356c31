package db

import (
	"fmt"
	"time"
)

func (db *DB) CreateAttachment(noteID int64, name, path string, size int64) (*Attachment, error) {
	now := time.Now()
	result, err := db.q.Exec(`
		INSERT INTO attachments (note_id, name, path, size, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, noteID, name, path, size, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Attachment{
		ID:        id,
		NoteID:    noteID,
		Name:      name,
		Path:      path,
		Size:      size,
		CreatedAt: now,
	}, nil
}

func (db *DB) AttachmentsForNote(noteID int64) ([]Attachment, error) {
	rows, err := db.q.Query(`
		SELECT id, note_id, name, path, size, created_at
		FROM attachments WHERE note_id = ?
		ORDER BY id ASC
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.NoteID, &a.Name, &a.Path, &a.Size, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// AttachmentPathExists reports whether the note already carries an attachment
// with this path. Deduplication is by path, not a database constraint.
func (db *DB) AttachmentPathExists(noteID int64, path string) (bool, error) {
	var count int
	err := db.q.QueryRow(`
		SELECT COUNT(*) FROM attachments WHERE note_id = ? AND path = ?
	`, noteID, path).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check attachment path: %w", err)
	}
	return count > 0, nil
}

func (db *DB) DeleteAttachmentsForNote(noteID int64) error {
	_, err := db.q.Exec(`DELETE FROM attachments WHERE note_id = ?`, noteID)
	if err != nil {
		return fmt.Errorf("failed to delete attachments: %w", err)
	}
	return nil
}
