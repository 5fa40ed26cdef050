package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDareOfTheDayIsStable(t *testing.T) {
	morning := time.Date(2025, 6, 15, 7, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, DareOfTheDay(morning), DareOfTheDay(evening))
}

func TestDareOfTheDayChangesAcrossDays(t *testing.T) {
	seen := make(map[string]struct{})
	day := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < len(DareCatalog); i++ {
		d := DareOfTheDay(day.AddDate(0, 0, i))
		seen[d.Text] = struct{}{}
	}

	// Twelve consecutive days walk the whole catalog exactly once.
	assert.Len(t, seen, len(DareCatalog))
}

func TestRandomDareRespectsExclusions(t *testing.T) {
	exclude := make([]string, 0, len(DareCatalog)-1)
	for _, d := range DareCatalog[1:] {
		exclude = append(exclude, d.Text)
	}

	for i := 0; i < 20; i++ {
		assert.Equal(t, DareCatalog[0].Text, RandomDare(exclude).Text)
	}
}

func TestRandomDareFallsBackWhenAllExcluded(t *testing.T) {
	exclude := make([]string, 0, len(DareCatalog))
	for _, d := range DareCatalog {
		exclude = append(exclude, d.Text)
	}

	d := RandomDare(exclude)
	_, ok := DareByText(d.Text)
	assert.True(t, ok)
}

func TestDareByText(t *testing.T) {
	d, ok := DareByText("Take a photo of something beautiful!")
	require.True(t, ok)
	assert.Equal(t, DareTypePhoto, d.Type)

	_, ok = DareByText("not in the catalog")
	assert.False(t, ok)
}
