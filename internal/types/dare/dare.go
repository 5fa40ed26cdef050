package dare

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CompletionState is derived from the persisted row: a row with completed=true
// is Completed, a row holding only draft text is Draft.
type CompletionState string

const (
	StateNone      CompletionState = "none"
	StateDraft     CompletionState = "draft"
	StateCompleted CompletionState = "completed"
)

// MediaKind selects the bucket and content-type allow-list for an attachment.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Record is one dare row for one user. The dare's prompt text is the natural
// key; prompts are assumed unique per user (enforced by the dares table).
type Record struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	DareText       string     `json:"dare_text" db:"dare_text"`
	Completed      bool       `json:"completed" db:"completed"`
	ImageURL       *string    `json:"image_url,omitempty" db:"image_url"`
	VideoURL       *string    `json:"video_url,omitempty" db:"video_url"`
	ReflectionText *string    `json:"reflection_text,omitempty" db:"reflection_text"`
	DraftText      *string    `json:"draft_text,omitempty" db:"draft_text"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

func (r *Record) State() CompletionState {
	switch {
	case r.Completed:
		return StateCompleted
	case r.DraftText != nil:
		return StateDraft
	default:
		return StateNone
	}
}

// InProgress reports whether the dare has saved draft text but is not done yet.
func (r *Record) InProgress() bool {
	return !r.Completed && r.DraftText != nil && *r.DraftText != ""
}

// Clone returns a deep copy. Cached records are never mutated in place; every
// mutation builds a copy and swaps it in only after the remote write succeeds.
func (r *Record) Clone() *Record {
	c := *r
	c.ImageURL = clonePtr(r.ImageURL)
	c.VideoURL = clonePtr(r.VideoURL)
	c.ReflectionText = clonePtr(r.ReflectionText)
	c.DraftText = clonePtr(r.DraftText)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Attachment is the media input to a completion. A reference that is already
// a durable storage URL is reused as-is; a device-local reference must carry
// the file content (base64, as the mobile file-system API returns it) so the
// server can make it durable.
type Attachment struct {
	Kind       MediaKind `json:"kind"`
	URI        string    `json:"uri"`
	DataBase64 string    `json:"data_base64,omitempty"`
}

// CompleteRequest carries everything needed to mark a dare completed.
type CompleteRequest struct {
	DareText       string
	Attachment     *Attachment
	ReflectionText *string
}

// Snapshot is the read model handed to the UI: all records newest-first plus
// the derived streak.
type Snapshot struct {
	Records    []*Record `json:"records"`
	StreakDays int       `json:"streak_days"`
}

// songSeparator splits the chosen song from the optional note inside
// reflection_text for song-type dares. Two values, one column.
const songSeparator = "|||"

func PackSongReflection(song, note string) string {
	if note == "" {
		return song
	}
	return song + songSeparator + note
}

func UnpackSongReflection(s string) (song, note string) {
	song, note, _ = strings.Cut(s, songSeparator)
	return song, note
}
