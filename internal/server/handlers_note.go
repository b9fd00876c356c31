package server

import (
	"encoding/json"
	"net/http"

	"github.com/ryotakamura/notefed/internal/db"
	"github.com/ryotakamura/notefed/internal/note"
)

type ListNotesRequest struct {
	Page       int          `json:"page"`
	Size       int          `json:"size"`
	SearchText string       `json:"search_text"`
	UseAI      bool         `json:"use_ai"`
	IsArchived bool         `json:"is_archived"`
	IsRecycle  bool         `json:"is_recycle"`
	Type       *db.NoteType `json:"type"`
	TagID      int64        `json:"tag_id"`
	WithFile   bool         `json:"with_file"`
	WithoutTag bool         `json:"without_tag"`
	WithLink   bool         `json:"with_link"`
}

func (s *Server) listNotesHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req ListNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Size <= 0 {
		req.Size = 30
	}

	notes, err := s.notes.List(account.ID, note.ListRequest{
		Page:       req.Page,
		Size:       req.Size,
		SearchText: req.SearchText,
		UseAI:      req.UseAI,
		IsArchived: req.IsArchived,
		IsRecycle:  req.IsRecycle,
		Type:       req.Type,
		TagID:      req.TagID,
		WithFile:   req.WithFile,
		WithoutTag: req.WithoutTag,
		WithLink:   req.WithLink,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"notes": notes}, http.StatusOK)
}

type PublicListRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

func (s *Server) publicListHandler(w http.ResponseWriter, r *http.Request) {
	var req PublicListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Size <= 0 {
		req.Size = 30
	}

	notes, err := s.notes.PublicList(req.Page, req.Size)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"notes": notes}, http.StatusOK)
}

type NoteIDRequest struct {
	ID int64 `json:"id"`
}

func (s *Server) publicDetailHandler(w http.ResponseWriter, r *http.Request) {
	var req NoteIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	detail, err := s.notes.PublicDetail(req.ID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, detail, http.StatusOK)
}

func (s *Server) noteDetailHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req NoteIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	detail, err := s.notes.Detail(account.ID, req.ID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, detail, http.StatusOK)
}

type NoteIDsRequest struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) listByIDsHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req NoteIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	notes, err := s.notes.ListByIDs(account.ID, req.IDs)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"notes": notes}, http.StatusOK)
}

func (s *Server) dailyReviewListHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	notes, err := s.notes.DailyReviewList(account.ID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"notes": notes}, http.StatusOK)
}

func (s *Server) reviewNoteHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req NoteIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.notes.Review(account.ID, req.ID); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertNoteRequest: nil fields mean "leave unchanged" on updates; id 0 means
// create.
type UpsertNoteRequest struct {
	ID          int64                  `json:"id"`
	Content     *string                `json:"content"`
	Type        *db.NoteType           `json:"type"`
	IsArchived  *bool                  `json:"is_archived"`
	IsRecycle   *bool                  `json:"is_recycle"`
	IsShare     *bool                  `json:"is_share"`
	IsTop       *bool                  `json:"is_top"`
	Attachments []note.AttachmentInput `json:"attachments"`
	References  []int64                `json:"references"`
}

func (s *Server) upsertNoteHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req UpsertNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == 0 && req.Content == nil {
		jsonError(w, "content required when creating a note", http.StatusBadRequest)
		return
	}

	result, err := s.notes.Upsert(account.ID, note.UpsertRequest{
		ID:          req.ID,
		Content:     req.Content,
		Type:        req.Type,
		IsArchived:  req.IsArchived,
		IsRecycle:   req.IsRecycle,
		IsShare:     req.IsShare,
		IsTop:       req.IsTop,
		Attachments: req.Attachments,
		References:  req.References,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	status := http.StatusOK
	if req.ID == 0 {
		status = http.StatusCreated
	}
	jsonResponse(w, result, status)
}

type UpdateManyRequest struct {
	IDs        []int64      `json:"ids"`
	Type       *db.NoteType `json:"type"`
	IsArchived *bool        `json:"is_archived"`
	IsRecycle  *bool        `json:"is_recycle"`
	IsShare    *bool        `json:"is_share"`
	IsTop      *bool        `json:"is_top"`
	IsReviewed *bool        `json:"is_reviewed"`
}

func (s *Server) updateManyHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req UpdateManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		jsonError(w, "ids required", http.StatusBadRequest)
		return
	}

	err := s.notes.UpdateMany(account.ID, req.IDs, db.NoteUpdate{
		Type:       req.Type,
		IsArchived: req.IsArchived,
		IsRecycle:  req.IsRecycle,
		IsShare:    req.IsShare,
		IsTop:      req.IsTop,
		IsReviewed: req.IsReviewed,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) trashManyHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req NoteIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		jsonError(w, "ids required", http.StatusBadRequest)
		return
	}

	if err := s.notes.TrashMany(account.ID, req.IDs); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteManyHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req NoteIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		jsonError(w, "ids required", http.StatusBadRequest)
		return
	}

	if err := s.notes.DeleteMany(account.ID, req.IDs); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AddReferenceRequest struct {
	FromNoteID int64 `json:"from_note_id"`
	ToNoteID   int64 `json:"to_note_id"`
}

func (s *Server) addReferenceHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req AddReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.notes.AddReference(account.ID, req.FromNoteID, req.ToNoteID); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type ReferenceListRequest struct {
	NoteID   int64 `json:"note_id"`
	Incoming bool  `json:"incoming"`
}

func (s *Server) referenceListHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)

	var req ReferenceListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	refs, err := s.notes.ReferenceList(account.ID, req.NoteID, req.Incoming)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"notes": refs}, http.StatusOK)
}
