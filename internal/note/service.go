// Package note implements the note service: CRUD, hashtag/tag-tree
// reconciliation, reference-graph maintenance and attachment association.
package note

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ryotakamura/notefed/internal/db"
	"github.com/ryotakamura/notefed/internal/enhance"
	"github.com/ryotakamura/notefed/internal/storage"
	"github.com/ryotakamura/notefed/internal/webhook"
)

var ErrNotFound = errors.New("note not found")

type Service struct {
	db      *db.DB
	files   *storage.Store
	hooks   *webhook.Dispatcher
	ai      *enhance.Client
	orderBy string
	log     zerolog.Logger
}

func NewService(database *db.DB, files *storage.Store, hooks *webhook.Dispatcher,
	ai *enhance.Client, orderBy string, log zerolog.Logger) *Service {
	return &Service{
		db:      database,
		files:   files,
		hooks:   hooks,
		ai:      ai,
		orderBy: orderBy,
		log:     log,
	}
}

// Detail is a note together with its tags, attachments and reference edges
// (ids only).
type Detail struct {
	db.Note
	Tags         []db.Tag        `json:"tags"`
	Attachments  []db.Attachment `json:"attachments"`
	References   []int64         `json:"references"`
	ReferencedBy []int64         `json:"referenced_by"`
}

type ListRequest struct {
	Page       int
	Size       int
	SearchText string
	UseAI      bool
	IsArchived bool
	IsRecycle  bool
	Type       *db.NoteType
	TagID      int64
	WithFile   bool
	WithoutTag bool
	WithLink   bool
}

func (s *Service) List(accountID int64, req ListRequest) ([]Detail, error) {
	var terms []string
	if req.SearchText != "" {
		if req.UseAI {
			// Enhanced search only returns results on the first page.
			if req.Page > 1 {
				return nil, nil
			}
			var err error
			terms, err = s.ai.Enhance(req.SearchText)
			if err != nil {
				return nil, fmt.Errorf("query enhancement failed: %w", err)
			}
		} else {
			terms = []string{req.SearchText}
		}
	}

	opts := db.ListNotesOptions{
		AccountID:   accountID,
		SearchTerms: terms,
		IsArchived:  req.IsArchived,
		IsRecycle:   req.IsRecycle,
		TagID:       req.TagID,
		WithFile:    req.WithFile,
		WithoutTag:  req.WithoutTag,
		WithLink:    req.WithLink,
		OrderBy:     s.orderBy,
		Page:        req.Page,
		Size:        req.Size,
	}
	if req.Type != nil {
		opts.Type = *req.Type
		opts.HasType = true
	}

	notes, err := s.db.ListNotes(opts)
	if err != nil {
		return nil, err
	}
	return s.details(notes)
}

// PublicList returns shared notes across all accounts with no ownership
// check.
func (s *Service) PublicList(page, size int) ([]Detail, error) {
	notes, err := s.db.ListNotes(db.ListNotesOptions{
		ShareOnly: true,
		OrderBy:   s.orderBy,
		Page:      page,
		Size:      size,
	})
	if err != nil {
		return nil, err
	}
	return s.details(notes)
}

func (s *Service) PublicDetail(id int64) (*Detail, error) {
	note, err := s.db.GetSharedNote(id)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNotFound
	}
	d, err := s.detailFor(*note)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) Detail(accountID, id int64) (*Detail, error) {
	note, err := s.db.GetNote(id, accountID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNotFound
	}
	d, err := s.detailFor(*note)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) ListByIDs(accountID int64, ids []int64) ([]Detail, error) {
	notes, err := s.db.GetNotesByIDs(ids, accountID)
	if err != nil {
		return nil, err
	}
	return s.details(notes)
}

func (s *Service) DailyReviewList(accountID int64) ([]db.Note, error) {
	return s.db.DailyReviewNotes(accountID)
}

func (s *Service) Review(accountID, id int64) error {
	note, err := s.db.GetNote(id, accountID)
	if err != nil {
		return err
	}
	if note == nil {
		return ErrNotFound
	}
	reviewed := true
	return s.db.UpdateNote(id, accountID, db.NoteUpdate{IsReviewed: &reviewed})
}

type AttachmentInput struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// UpsertRequest uses nil to mean "leave unchanged" on updates; References nil
// skips reference reconciliation entirely.
type UpsertRequest struct {
	ID          int64
	Content     *string
	Type        *db.NoteType
	IsArchived  *bool
	IsRecycle   *bool
	IsShare     *bool
	IsTop       *bool
	Attachments []AttachmentInput
	References  []int64
}

// UpsertResult distinguishes "note created, some attachments failed" from full
// failure: AttachmentErrors is non-empty when the create path lost attachments.
type UpsertResult struct {
	Note             *db.Note `json:"note"`
	AttachmentErrors []string `json:"attachment_errors,omitempty"`
}

func (s *Service) Upsert(accountID int64, req UpsertRequest) (*UpsertResult, error) {
	if req.ID == 0 {
		return s.create(accountID, req)
	}
	return s.update(accountID, req)
}

func (s *Service) create(accountID int64, req UpsertRequest) (*UpsertResult, error) {
	content := ""
	if req.Content != nil {
		content = SanitizeContent(*req.Content)
	}

	n := &db.Note{
		AccountID: accountID,
		Content:   content,
	}
	if req.Type != nil {
		n.Type = *req.Type
	}
	if req.IsArchived != nil {
		n.IsArchived = *req.IsArchived
	}
	if req.IsShare != nil {
		n.IsShare = *req.IsShare
	}
	if req.IsTop != nil {
		n.IsTop = *req.IsTop
	}

	result := &UpsertResult{}
	err := s.db.WithTx(func(tx *db.DB) error {
		if err := tx.CreateNote(n); err != nil {
			return err
		}

		tags, err := syncTagTree(tx, accountID, BuildTagTree(ExtractHashtags(content)), 0)
		if err != nil {
			return err
		}
		for _, t := range tags {
			if err := tx.AssociateTag(t.ID, n.ID); err != nil {
				return err
			}
		}

		// A failed attachment insert is reported in the result, never fatal
		// to the note.
		for _, a := range req.Attachments {
			if _, err := tx.CreateAttachment(n.ID, a.Name, a.Path, a.Size); err != nil {
				s.log.Warn().Err(err).Int64("note_id", n.ID).Str("path", a.Path).
					Msg("attachment insert failed")
				result.AttachmentErrors = append(result.AttachmentErrors,
					fmt.Sprintf("%s: %v", a.Path, err))
			}
		}

		for _, to := range req.References {
			if err := s.validateReferenceTarget(tx, accountID, to); err != nil {
				return err
			}
			if err := tx.CreateReference(n.ID, to); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	attachments, err := s.db.AttachmentsForNote(n.ID)
	if err != nil {
		s.log.Warn().Err(err).Int64("note_id", n.ID).Msg("failed to load attachments for webhook")
	}
	s.hooks.Send(webhook.Event{
		Action:      webhook.ActionCreate,
		Note:        n,
		Attachments: attachments,
		Context:     map[string]any{"account_id": accountID},
	})

	result.Note = n
	return result, nil
}

func (s *Service) update(accountID int64, req UpsertRequest) (*UpsertResult, error) {
	var updated *db.Note
	err := s.db.WithTx(func(tx *db.DB) error {
		existing, err := tx.GetNote(req.ID, accountID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}

		update := db.NoteUpdate{
			Type:       req.Type,
			IsArchived: req.IsArchived,
			IsRecycle:  req.IsRecycle,
			IsShare:    req.IsShare,
			IsTop:      req.IsTop,
		}

		// A nil content means "do not touch content"; tags are only
		// reconciled when content actually changes hands.
		if req.Content != nil {
			content := SanitizeContent(*req.Content)
			update.Content = &content
			if err := s.reconcileTags(tx, accountID, existing.ID, content); err != nil {
				return err
			}
		}

		if err := tx.UpdateNote(req.ID, accountID, update); err != nil {
			return err
		}

		if req.References != nil {
			if err := s.reconcileReferences(tx, accountID, existing.ID, req.References); err != nil {
				return err
			}
		}

		// Path-based attachment dedup; existing paths are left alone.
		for _, a := range req.Attachments {
			exists, err := tx.AttachmentPathExists(existing.ID, a.Path)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if _, err := tx.CreateAttachment(existing.ID, a.Name, a.Path, a.Size); err != nil {
				return err
			}
		}

		updated, err = tx.GetNote(req.ID, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &UpsertResult{Note: updated}, nil
}

// reconcileTags diffs the persisted tag associations of a note against the
// hashtags extracted from its new content, then collects orphaned tags.
func (s *Service) reconcileTags(tx *db.DB, accountID, noteID int64, content string) error {
	newTags, err := syncTagTree(tx, accountID, BuildTagTree(ExtractHashtags(content)), 0)
	if err != nil {
		return err
	}

	oldTags, err := tx.TagsForNote(noteID)
	if err != nil {
		return err
	}

	newSet := make(map[tagKey]db.Tag, len(newTags))
	for _, t := range newTags {
		newSet[tagKey{t.Name, t.ParentID}] = t
	}
	oldSet := make(map[tagKey]db.Tag, len(oldTags))
	for _, t := range oldTags {
		oldSet[tagKey{t.Name, t.ParentID}] = t
	}

	for key, t := range oldSet {
		if _, keep := newSet[key]; !keep {
			if err := tx.DissociateTag(t.ID, noteID); err != nil {
				return err
			}
		}
	}
	for key, t := range newSet {
		if _, had := oldSet[key]; !had {
			if err := tx.AssociateTag(t.ID, noteID); err != nil {
				return err
			}
		}
	}

	_, err = tx.DeleteOrphanTags(accountID)
	return err
}

func (s *Service) reconcileReferences(tx *db.DB, accountID, noteID int64, want []int64) error {
	existing, err := tx.ReferencesFrom(noteID)
	if err != nil {
		return err
	}

	oldSet := make(map[int64]bool, len(existing))
	for _, r := range existing {
		oldSet[r.ToNoteID] = true
	}
	newSet := make(map[int64]bool, len(want))
	for _, to := range want {
		newSet[to] = true
	}

	for to := range oldSet {
		if !newSet[to] {
			if err := tx.DeleteReference(noteID, to); err != nil {
				return err
			}
		}
	}
	for to := range newSet {
		if !oldSet[to] {
			if err := s.validateReferenceTarget(tx, accountID, to); err != nil {
				return err
			}
			if err := tx.CreateReference(noteID, to); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) validateReferenceTarget(tx *db.DB, accountID, noteID int64) error {
	target, err := tx.GetNote(noteID, accountID)
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("reference target %d: %w", noteID, ErrNotFound)
	}
	return nil
}

// tagKey identifies a tag across tree levels; a composite of name and parent,
// not a concatenated string.
type tagKey struct {
	Name     string
	ParentID int64
}

// syncTagTree walks the forest and finds-or-creates a persisted tag per node,
// returning the flattened set across all levels.
func syncTagTree(tx *db.DB, accountID int64, nodes []*TagNode, parentID int64) ([]db.Tag, error) {
	var out []db.Tag
	for _, node := range nodes {
		tag, err := tx.FindOrCreateTag(node.Name, parentID, accountID)
		if err != nil {
			return nil, err
		}
		out = append(out, *tag)

		children, err := syncTagTree(tx, accountID, node.Children, tag.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	return out, nil
}

func (s *Service) UpdateMany(accountID int64, ids []int64, update db.NoteUpdate) error {
	return s.db.UpdateNotes(ids, accountID, update)
}

func (s *Service) TrashMany(accountID int64, ids []int64) error {
	recycle := true
	return s.db.UpdateNotes(ids, accountID, db.NoteUpdate{IsRecycle: &recycle})
}

// DeleteMany hard-deletes notes with full relation cleanup. Webhooks fire per
// note before the deleting transaction; attachment files are removed after it
// commits, each failure logged and skipped.
func (s *Service) DeleteMany(accountID int64, ids []int64) error {
	var notes []db.Note
	var files []db.Attachment
	for _, id := range ids {
		n, err := s.db.GetNote(id, accountID)
		if err != nil {
			return err
		}
		if n == nil {
			continue
		}

		attachments, err := s.db.AttachmentsForNote(n.ID)
		if err != nil {
			return err
		}
		files = append(files, attachments...)

		s.hooks.Send(webhook.Event{
			Action:      webhook.ActionDelete,
			Note:        n,
			Attachments: attachments,
			Context:     map[string]any{"account_id": accountID},
		})
		notes = append(notes, *n)
	}
	if len(notes) == 0 {
		return nil
	}

	err := s.db.WithTx(func(tx *db.DB) error {
		owned := make([]int64, 0, len(notes))
		for _, n := range notes {
			owned = append(owned, n.ID)
			if err := tx.DeleteTagAssociations(n.ID); err != nil {
				return err
			}
			if err := tx.DeleteReferencesForNote(n.ID); err != nil {
				return err
			}
			if err := tx.DeleteAttachmentsForNote(n.ID); err != nil {
				return err
			}
		}
		if _, err := tx.DeleteOrphanTags(accountID); err != nil {
			return err
		}
		return tx.DeleteNotes(owned, accountID)
	})
	if err != nil {
		return err
	}

	for _, a := range files {
		if err := s.files.Delete(a.Path); err != nil {
			s.log.Warn().Err(err).Str("path", a.Path).Msg("failed to delete attachment file")
		}
	}
	return nil
}

func (s *Service) AddReference(accountID, fromNoteID, toNoteID int64) error {
	return s.db.WithTx(func(tx *db.DB) error {
		if err := s.validateReferenceTarget(tx, accountID, fromNoteID); err != nil {
			return err
		}
		if err := s.validateReferenceTarget(tx, accountID, toNoteID); err != nil {
			return err
		}
		return tx.CreateReference(fromNoteID, toNoteID)
	})
}

// ReferenceList lists a note's graph neighbors in one direction, newest edge
// first.
func (s *Service) ReferenceList(accountID, noteID int64, incoming bool) ([]db.ReferencedNote, error) {
	note, err := s.db.GetNote(noteID, accountID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNotFound
	}
	return s.db.ReferenceNeighbors(noteID, incoming)
}

func (s *Service) details(notes []db.Note) ([]Detail, error) {
	out := make([]Detail, 0, len(notes))
	for _, n := range notes {
		d, err := s.detailFor(n)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Service) detailFor(n db.Note) (Detail, error) {
	d := Detail{Note: n}

	var err error
	if d.Tags, err = s.db.TagsForNote(n.ID); err != nil {
		return d, err
	}
	if d.Attachments, err = s.db.AttachmentsForNote(n.ID); err != nil {
		return d, err
	}

	outgoing, err := s.db.ReferencesFrom(n.ID)
	if err != nil {
		return d, err
	}
	for _, r := range outgoing {
		d.References = append(d.References, r.ToNoteID)
	}

	incoming, err := s.db.ReferencesTo(n.ID)
	if err != nil {
		return d, err
	}
	for _, r := range incoming {
		d.ReferencedBy = append(d.ReferencedBy, r.FromNoteID)
	}
	return d, nil
}
