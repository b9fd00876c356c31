package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const noteColumns = `id, account_id, type, content, is_archived, is_recycle,
	is_share, is_top, is_reviewed, created_at, updated_at`

// ListNotesOptions carries all note.list filters. SearchTerms, when non-empty,
// takes precedence over the archive/recycle/type filters; WithLink in turn
// replaces SearchTerms when both are set.
type ListNotesOptions struct {
	AccountID   int64
	SearchTerms []string
	IsArchived  bool
	IsRecycle   bool
	Type        NoteType
	HasType     bool
	TagID       int64
	WithFile    bool
	WithoutTag  bool
	WithLink    bool
	ShareOnly   bool
	OrderBy     string // "created" or "updated"
	Page        int
	Size        int
}

func (db *DB) ListNotes(opts ListNotesOptions) ([]Note, error) {
	var conditions []string
	var args []any

	if opts.AccountID > 0 {
		conditions = append(conditions, `account_id = ?`)
		args = append(args, opts.AccountID)
	}
	if opts.ShareOnly {
		conditions = append(conditions, `is_share = 1`, `is_recycle = 0`)
	}

	// The link filter wins over text search when both are set.
	searchTerms := opts.SearchTerms
	if opts.WithLink {
		searchTerms = nil
	}

	if len(searchTerms) > 0 {
		// Substring search over content and attachment paths overrides the
		// archive/recycle/type filters.
		var search []string
		for _, term := range searchTerms {
			pattern := "%" + term + "%"
			search = append(search, `(content LIKE ? OR EXISTS (
				SELECT 1 FROM attachments a WHERE a.note_id = notes.id AND a.path LIKE ?))`)
			args = append(args, pattern, pattern)
		}
		conditions = append(conditions, "("+strings.Join(search, " OR ")+")")
	} else if !opts.ShareOnly {
		conditions = append(conditions, `is_recycle = ?`, `is_archived = ?`)
		args = append(args, boolToInt(opts.IsRecycle), boolToInt(opts.IsArchived))
		if opts.HasType {
			conditions = append(conditions, `type = ?`)
			args = append(args, int(opts.Type))
		}
	}

	if opts.TagID > 0 {
		conditions = append(conditions, `EXISTS (
			SELECT 1 FROM tags_to_note tn WHERE tn.note_id = notes.id AND tn.tag_id = ?)`)
		args = append(args, opts.TagID)
	}
	if opts.WithFile {
		conditions = append(conditions, `EXISTS (
			SELECT 1 FROM attachments a WHERE a.note_id = notes.id)`)
	}
	if opts.WithoutTag {
		conditions = append(conditions, `NOT EXISTS (
			SELECT 1 FROM tags_to_note tn WHERE tn.note_id = notes.id)`)
	}
	if opts.WithLink {
		conditions = append(conditions, `(content LIKE '%http://%' OR content LIKE '%https://%')`)
	}

	query := `SELECT ` + noteColumns + ` FROM notes`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	orderCol := "created_at"
	if opts.OrderBy == "updated" {
		orderCol = "updated_at"
	}
	query += fmt.Sprintf(" ORDER BY is_top DESC, %s DESC", orderCol)

	if opts.Size > 0 {
		page := opts.Page
		if page < 1 {
			page = 1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Size, (page-1)*opts.Size)
	}

	rows, err := db.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

func (db *DB) GetNote(id, accountID int64) (*Note, error) {
	return db.scanNote(db.q.QueryRow(`
		SELECT `+noteColumns+` FROM notes WHERE id = ? AND account_id = ?
	`, id, accountID))
}

// GetSharedNote looks a note up by id alone; callers use it for public detail
// where the only gate is the share flag.
func (db *DB) GetSharedNote(id int64) (*Note, error) {
	return db.scanNote(db.q.QueryRow(`
		SELECT `+noteColumns+` FROM notes WHERE id = ? AND is_share = 1 AND is_recycle = 0
	`, id))
}

func (db *DB) GetNotesByIDs(ids []int64, accountID int64) ([]Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + noteColumns + ` FROM notes WHERE account_id = ? AND id IN (` +
		placeholders(len(ids)) + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, accountID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := db.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes by ids: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

func (db *DB) CreateNote(n *Note) error {
	now := time.Now()
	result, err := db.q.Exec(`
		INSERT INTO notes (account_id, type, content, is_archived, is_recycle,
			is_share, is_top, is_reviewed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.AccountID, int(n.Type), n.Content, boolToInt(n.IsArchived), boolToInt(n.IsRecycle),
		boolToInt(n.IsShare), boolToInt(n.IsTop), boolToInt(n.IsReviewed), now, now)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	n.CreatedAt = now
	n.UpdatedAt = now
	return nil
}

// NoteUpdate uses nil to mean "leave unchanged"; an explicit false/empty value
// is a real update.
type NoteUpdate struct {
	Content    *string
	Type       *NoteType
	IsArchived *bool
	IsRecycle  *bool
	IsShare    *bool
	IsTop      *bool
	IsReviewed *bool
}

func (u NoteUpdate) apply(sets *[]string, args *[]any) {
	if u.Content != nil {
		*sets = append(*sets, `content = ?`)
		*args = append(*args, *u.Content)
	}
	if u.Type != nil {
		*sets = append(*sets, `type = ?`)
		*args = append(*args, int(*u.Type))
	}
	if u.IsArchived != nil {
		*sets = append(*sets, `is_archived = ?`)
		*args = append(*args, boolToInt(*u.IsArchived))
	}
	if u.IsRecycle != nil {
		*sets = append(*sets, `is_recycle = ?`)
		*args = append(*args, boolToInt(*u.IsRecycle))
	}
	if u.IsShare != nil {
		*sets = append(*sets, `is_share = ?`)
		*args = append(*args, boolToInt(*u.IsShare))
	}
	if u.IsTop != nil {
		*sets = append(*sets, `is_top = ?`)
		*args = append(*args, boolToInt(*u.IsTop))
	}
	if u.IsReviewed != nil {
		*sets = append(*sets, `is_reviewed = ?`)
		*args = append(*args, boolToInt(*u.IsReviewed))
	}
}

func (db *DB) UpdateNote(id, accountID int64, update NoteUpdate) error {
	sets := []string{`updated_at = ?`}
	args := []any{time.Now()}
	update.apply(&sets, &args)

	args = append(args, id, accountID)
	_, err := db.q.Exec(`UPDATE notes SET `+strings.Join(sets, ", ")+
		` WHERE id = ? AND account_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return nil
}

func (db *DB) UpdateNotes(ids []int64, accountID int64, update NoteUpdate) error {
	if len(ids) == 0 {
		return nil
	}
	sets := []string{`updated_at = ?`}
	args := []any{time.Now()}
	update.apply(&sets, &args)

	args = append(args, accountID)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := db.q.Exec(`UPDATE notes SET `+strings.Join(sets, ", ")+
		` WHERE account_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	return nil
}

func (db *DB) DeleteNotes(ids []int64, accountID int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, accountID)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := db.q.Exec(`DELETE FROM notes WHERE account_id = ? AND id IN (`+
		placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete notes: %w", err)
	}
	return nil
}

// DailyReviewNotes lists notes created within the last 24 hours that are
// neither reviewed nor archived.
func (db *DB) DailyReviewNotes(accountID int64) ([]Note, error) {
	rows, err := db.q.Query(`
		SELECT `+noteColumns+` FROM notes
		WHERE account_id = ? AND created_at > ? AND is_reviewed = 0
			AND is_archived = 0 AND is_recycle = 0
		ORDER BY created_at DESC
	`, accountID, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to list review notes: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

func (db *DB) scanNote(row *sql.Row) (*Note, error) {
	var n Note
	var typ, archived, recycle, share, top, reviewed int
	err := row.Scan(&n.ID, &n.AccountID, &typ, &n.Content, &archived, &recycle,
		&share, &top, &reviewed, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	n.Type = NoteType(typ)
	n.IsArchived = archived == 1
	n.IsRecycle = recycle == 1
	n.IsShare = share == 1
	n.IsTop = top == 1
	n.IsReviewed = reviewed == 1
	return &n, nil
}

func scanNotes(rows *sql.Rows) ([]Note, error) {
	var notes []Note
	for rows.Next() {
		var n Note
		var typ, archived, recycle, share, top, reviewed int
		if err := rows.Scan(&n.ID, &n.AccountID, &typ, &n.Content, &archived, &recycle,
			&share, &top, &reviewed, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.Type = NoteType(typ)
		n.IsArchived = archived == 1
		n.IsRecycle = recycle == 1
		n.IsShare = share == 1
		n.IsTop = top == 1
		n.IsReviewed = reviewed == 1
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
