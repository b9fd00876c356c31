package db

import "time"

type NoteType int

const (
	NoteTypeText NoteType = 0
	NoteTypeLink NoteType = 1
	NoteTypeTodo NoteType = 2
)

type FollowType string

const (
	FollowTypeFollowing FollowType = "following"
	FollowTypeFollower  FollowType = "follower"
)

type Account struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Image        string    `json:"image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Active       bool      `json:"active"`
}

type Note struct {
	ID         int64     `json:"id"`
	AccountID  int64     `json:"account_id"`
	Type       NoteType  `json:"type"`
	Content    string    `json:"content"`
	IsArchived bool      `json:"is_archived"`
	IsRecycle  bool      `json:"is_recycle"`
	IsShare    bool      `json:"is_share"`
	IsTop      bool      `json:"is_top"`
	IsReviewed bool      `json:"is_reviewed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Tag struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Name      string    `json:"name"`
	ParentID  int64     `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NoteReference struct {
	ID         int64     `json:"id"`
	FromNoteID int64     `json:"from_note_id"`
	ToNoteID   int64     `json:"to_note_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Attachment struct {
	ID        int64     `json:"id"`
	NoteID    int64     `json:"note_id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type Follow struct {
	ID         int64      `json:"id"`
	AccountID  int64      `json:"account_id"`
	SiteURL    string     `json:"site_url"`
	SiteName   string     `json:"site_name,omitempty"`
	SiteAvatar string     `json:"site_avatar,omitempty"`
	FollowType FollowType `json:"follow_type"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ReferencedNote is a graph neighbor annotated with the edge's creation time.
type ReferencedNote struct {
	Note     Note      `json:"note"`
	LinkedAt time.Time `json:"linked_at"`
}
