package dare

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestState(t *testing.T) {
	assert.Equal(t, StateNone, (&Record{}).State())
	assert.Equal(t, StateDraft, (&Record{DraftText: strPtr("wip")}).State())
	assert.Equal(t, StateCompleted, (&Record{Completed: true}).State())
	// A completed record carrying leftover draft text is still completed.
	assert.Equal(t, StateCompleted, (&Record{Completed: true, DraftText: strPtr("wip")}).State())
}

func TestInProgress(t *testing.T) {
	assert.False(t, (&Record{}).InProgress())
	assert.True(t, (&Record{DraftText: strPtr("started...")}).InProgress())
	assert.False(t, (&Record{DraftText: strPtr("")}).InProgress())
	assert.False(t, (&Record{Completed: true, DraftText: strPtr("x")}).InProgress())
}

func TestCloneIsIndependent(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	original := &Record{
		DareText:       "Sketch your favorite place from memory",
		Completed:      true,
		ImageURL:       strPtr("https://x/storage/v1/object/public/dare-images/u/a.jpg"),
		ReflectionText: strPtr("felt great"),
		CompletedAt:    &at,
	}

	clone := original.Clone()
	*clone.ImageURL = "changed"
	*clone.CompletedAt = at.AddDate(0, 0, 1)
	clone.DraftText = strPtr("new draft")

	assert.Equal(t, "https://x/storage/v1/object/public/dare-images/u/a.jpg", *original.ImageURL)
	assert.Equal(t, at, *original.CompletedAt)
	assert.Nil(t, original.DraftText)
}

func TestSongReflectionPacking(t *testing.T) {
	packed := PackSongReflection("Bohemian Rhapsody - Queen", "today needed drama")
	song, note := UnpackSongReflection(packed)
	assert.Equal(t, "Bohemian Rhapsody - Queen", song)
	assert.Equal(t, "today needed drama", note)
}

func TestSongReflectionWithoutNote(t *testing.T) {
	packed := PackSongReflection("Clair de Lune", "")
	assert.Equal(t, "Clair de Lune", packed)

	song, note := UnpackSongReflection(packed)
	assert.Equal(t, "Clair de Lune", song)
	assert.Equal(t, "", note)
}
