package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dailyDareAPI/internal/types/dare"
	"dailyDareAPI/middleware"
	"dailyDareAPI/services"
	"dailyDareAPI/utils"

	"github.com/skip2/go-qrcode"
)

type DareHandler struct {
	dareService *services.DareService
}

func NewDareHandler(dareService *services.DareService) *DareHandler {
	return &DareHandler{
		dareService: dareService,
	}
}

// requestNow resolves "now" in the caller's wall-clock zone. The streak is
// defined against the user's local day, so clients pass their IANA zone via
// ?tz=; without it the server zone applies.
func requestNow(r *http.Request) time.Time {
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		return time.Now()
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Now()
	}
	return time.Now().In(loc)
}

// GetDares returns the full snapshot. Unauthenticated callers get an empty
// one rather than an error, so the landing screen renders before sign-in.
func (h *DareHandler) GetDares(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, _ := middleware.GetClerkID(ctx)

	snapshot, err := h.dareService.Load(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "unable to load dares")
		return
	}

	if clerkID != "" {
		snapshot = h.dareService.SnapshotAt(clerkID, requestNow(r))
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}

type completeDareRequest struct {
	DareText       string `json:"dare_text"`
	Kind           string `json:"kind"`
	MediaURI       string `json:"media_uri"`
	DataBase64     string `json:"data_base64"`
	ReflectionText string `json:"reflection_text"`
	Song           string `json:"song"`
	SongNote       string `json:"song_note"`
}

func (h *DareHandler) CompleteDare(w http.ResponseWriter, r *http.Request) {
	// Uploads carry whole media payloads; give them more room than the usual
	// 5 seconds.
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req completeDareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DareText == "" {
		respondWithError(w, http.StatusBadRequest, "dare_text is required")
		return
	}

	completeReq := &dare.CompleteRequest{DareText: req.DareText}

	if req.MediaURI != "" {
		completeReq.Attachment = &dare.Attachment{
			Kind:       dare.MediaKind(req.Kind),
			URI:        req.MediaURI,
			DataBase64: req.DataBase64,
		}
	}

	reflection := req.ReflectionText
	if req.Song != "" {
		reflection = dare.PackSongReflection(req.Song, req.SongNote)
	}
	if reflection != "" {
		completeReq.ReflectionText = &reflection
	}

	rec, err := h.dareService.MarkComplete(ctx, clerkID, completeReq)
	if err != nil {
		if errors.Is(err, services.ErrUnauthenticated) {
			respondWithError(w, http.StatusUnauthorized, "User not authenticated")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "unable to complete dare")
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

type saveDraftRequest struct {
	DareText  string `json:"dare_text"`
	DraftText string `json:"draft_text"`
}

func (h *DareHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req saveDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DareText == "" {
		respondWithError(w, http.StatusBadRequest, "dare_text is required")
		return
	}

	rec, err := h.dareService.SaveDraft(ctx, clerkID, req.DareText, req.DraftText)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "unable to save draft")
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

type deleteDareRequest struct {
	DareText string `json:"dare_text"`
}

func (h *DareHandler) DeleteDare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req deleteDareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.dareService.Delete(ctx, clerkID, req.DareText); err != nil {
		respondWithError(w, http.StatusNotFound, "unable to delete dare")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type highlightRequest struct {
	DareText string `json:"dare_text"`
}

func (h *DareHandler) SetHighlight(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req highlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.dareService.SetHighlighted(clerkID, req.DareText)
	respondWithJSON(w, http.StatusOK, map[string]string{"highlighted": req.DareText})
}

func (h *DareHandler) GetHighlight(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"highlighted": h.dareService.Highlighted(clerkID),
	})
}

// GetDailyDare serves the prompt of the day, plus a random re-roll excluding
// the prompts the user already finished when ?reroll=true.
func (h *DareHandler) GetDailyDare(w http.ResponseWriter, r *http.Request) {
	clerkID, _ := middleware.GetClerkID(r.Context())

	if r.URL.Query().Get("reroll") == "true" {
		var exclude []string
		if clerkID != "" {
			for _, rec := range h.dareService.Snapshot(clerkID).Records {
				if rec.Completed {
					exclude = append(exclude, rec.DareText)
				}
			}
		}
		exclude = append(exclude, r.URL.Query().Get("current"))
		respondWithJSON(w, http.StatusOK, utils.RandomDare(exclude))
		return
	}

	respondWithJSON(w, http.StatusOK, utils.DareOfTheDay(requestNow(r)))
}

// GetShareQr renders a QR code for a deep link into the dare, so a finished
// dare can be shown to a friend's phone.
func (h *DareHandler) GetShareQr(w http.ResponseWriter, r *http.Request) {
	dareText := r.URL.Query().Get("dare_text")
	if dareText == "" {
		respondWithError(w, http.StatusBadRequest, "dare_text is required")
		return
	}

	qrContent := fmt.Sprintf("dailydare://dare/%s", dareText)

	pngBytes, err := qrcode.Encode(qrContent, qrcode.Medium, 256)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "unable to generate qr code")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"qr_code_base64": base64.StdEncoding.EncodeToString(pngBytes),
	})
}
