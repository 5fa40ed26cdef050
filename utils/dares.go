package utils

import (
	"math/rand"
	"time"
)

type DareType string

const (
	DareTypePhoto DareType = "photo"
	DareTypeText  DareType = "text"
	DareTypeSong  DareType = "song"
)

type CatalogDare struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Type        DareType `json:"type"`
	Placeholder string   `json:"placeholder,omitempty"`
}

var DareCatalog = []CatalogDare{
	{ID: "1", Text: "Take a photo of something beautiful!", Type: DareTypePhoto},
	{ID: "2", Text: "Compliment a stranger and reflect on it", Type: DareTypeText,
		Placeholder: "How did it feel? What did you say? How did they react?"},
	{ID: "3", Text: "Design a logo for an imaginary company using only circles", Type: DareTypePhoto},
	{ID: "4", Text: "Write a letter to your future self 5 years from now", Type: DareTypeText,
		Placeholder: "What do you want to tell your future self?"},
	{ID: "5", Text: "Sketch your favorite place from memory", Type: DareTypePhoto},
	{ID: "6", Text: "Create a playlist of 5 songs that tell a story", Type: DareTypeText,
		Placeholder: "List the songs and explain the story they tell together..."},
	{ID: "7", Text: "Draw a self-portrait using only geometric shapes", Type: DareTypePhoto},
	{ID: "8", Text: "Write a 50-word story that ends with the word 'finally'", Type: DareTypeText,
		Placeholder: "Once upon a time..."},
	{ID: "9", Text: "Create a collage using only things you find in your kitchen", Type: DareTypePhoto},
	{ID: "10", Text: "Pick a song that captures today and say why", Type: DareTypeSong,
		Placeholder: "Why this song?"},
	{ID: "11", Text: "Film a 10-second clip of something that made you smile", Type: DareTypePhoto},
	{ID: "12", Text: "Describe a color to someone who has never seen it", Type: DareTypeText,
		Placeholder: "Start with how it feels..."},
}

// DareOfTheDay picks a stable dare for the calendar day, so every device
// shows the same prompt without coordinating.
func DareOfTheDay(now time.Time) CatalogDare {
	return DareCatalog[now.YearDay()%len(DareCatalog)]
}

// RandomDare returns a random dare excluding the given prompts (the current
// one plus everything already completed). Falls back to a fully random pick
// if the exclusions cover the whole catalog.
func RandomDare(exclude []string) CatalogDare {
	excluded := make(map[string]struct{}, len(exclude))
	for _, text := range exclude {
		excluded[text] = struct{}{}
	}

	var available []CatalogDare
	for _, d := range DareCatalog {
		if _, ok := excluded[d.Text]; !ok {
			available = append(available, d)
		}
	}

	if len(available) == 0 {
		return DareCatalog[rand.Intn(len(DareCatalog))]
	}
	return available[rand.Intn(len(available))]
}

// DareByText looks a prompt up in the catalog.
func DareByText(text string) (CatalogDare, bool) {
	for _, d := range DareCatalog {
		if d.Text == text {
			return d, true
		}
	}
	return CatalogDare{}, false
}
