package db

import "fmt"

func (db *DB) CreateReference(fromNoteID, toNoteID int64) error {
	_, err := db.q.Exec(`
		INSERT OR IGNORE INTO note_references (from_note_id, to_note_id)
		VALUES (?, ?)
	`, fromNoteID, toNoteID)
	if err != nil {
		return fmt.Errorf("failed to create reference: %w", err)
	}
	return nil
}

func (db *DB) DeleteReference(fromNoteID, toNoteID int64) error {
	_, err := db.q.Exec(`
		DELETE FROM note_references WHERE from_note_id = ? AND to_note_id = ?
	`, fromNoteID, toNoteID)
	if err != nil {
		return fmt.Errorf("failed to delete reference: %w", err)
	}
	return nil
}

// DeleteReferencesForNote removes edges in both directions.
func (db *DB) DeleteReferencesForNote(noteID int64) error {
	_, err := db.q.Exec(`
		DELETE FROM note_references WHERE from_note_id = ? OR to_note_id = ?
	`, noteID, noteID)
	if err != nil {
		return fmt.Errorf("failed to delete references: %w", err)
	}
	return nil
}

// ReferencesFrom lists outgoing edges of a note.
func (db *DB) ReferencesFrom(noteID int64) ([]NoteReference, error) {
	return db.listReferences(`from_note_id = ?`, noteID)
}

// ReferencesTo lists incoming edges of a note.
func (db *DB) ReferencesTo(noteID int64) ([]NoteReference, error) {
	return db.listReferences(`to_note_id = ?`, noteID)
}

func (db *DB) listReferences(where string, arg any) ([]NoteReference, error) {
	rows, err := db.q.Query(`
		SELECT id, from_note_id, to_note_id, created_at
		FROM note_references WHERE `+where+`
		ORDER BY created_at DESC, id DESC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer rows.Close()

	var refs []NoteReference
	for rows.Next() {
		var r NoteReference
		if err := rows.Scan(&r.ID, &r.FromNoteID, &r.ToNoteID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ReferenceNeighbors lists the notes one hop away from noteID, annotated with
// the edge creation time, newest edge first. incoming selects the direction.
func (db *DB) ReferenceNeighbors(noteID int64, incoming bool) ([]ReferencedNote, error) {
	join := `r.from_note_id = ? AND n.id = r.to_note_id`
	if incoming {
		join = `r.to_note_id = ? AND n.id = r.from_note_id`
	}

	rows, err := db.q.Query(`
		SELECT `+prefixedNoteColumns("n")+`, r.created_at
		FROM note_references r
		JOIN notes n ON `+join+`
		ORDER BY r.created_at DESC, r.id DESC
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference neighbors: %w", err)
	}
	defer rows.Close()

	var out []ReferencedNote
	for rows.Next() {
		var rn ReferencedNote
		var typ, archived, recycle, share, top, reviewed int
		n := &rn.Note
		if err := rows.Scan(&n.ID, &n.AccountID, &typ, &n.Content, &archived, &recycle,
			&share, &top, &reviewed, &n.CreatedAt, &n.UpdatedAt, &rn.LinkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reference neighbor: %w", err)
		}
		n.Type = NoteType(typ)
		n.IsArchived = archived == 1
		n.IsRecycle = recycle == 1
		n.IsShare = share == 1
		n.IsTop = top == 1
		n.IsReviewed = reviewed == 1
		out = append(out, rn)
	}
	return out, rows.Err()
}

func prefixedNoteColumns(alias string) string {
	return alias + `.id, ` + alias + `.account_id, ` + alias + `.type, ` +
		alias + `.content, ` + alias + `.is_archived, ` + alias + `.is_recycle, ` +
		alias + `.is_share, ` + alias + `.is_top, ` + alias + `.is_reviewed, ` +
		alias + `.created_at, ` + alias + `.updated_at`
}
