package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"dailyDareAPI/internal/objectstore"
	"dailyDareAPI/internal/streak"
	"dailyDareAPI/internal/types/dare"
)

// ErrUnauthenticated rejects mutating calls made without a user session.
// Loading without a session is not an error; it just yields an empty view.
var ErrUnauthenticated = errors.New("no authenticated user")

// highlightDuration is how long a "just navigated to" mark stays visible.
const highlightDuration = 1500 * time.Millisecond

// DareService is the authoritative in-memory view of every user's dare
// records, kept consistent with Postgres. The cache only ever reflects
// confirmed remote state: a row write that fails leaves the cache exactly as
// it was, and media uploads complete before any row is touched.
type DareService struct {
	repo  DareRepository
	media *MediaService
	notif *NotificationService
	now   func() time.Time

	mu          sync.Mutex
	cache       map[string]map[string]*dare.Record
	highlighted map[string]string
	keyLocks    map[string]*sync.Mutex
}

func NewDareService(repo DareRepository, media *MediaService, notif *NotificationService) *DareService {
	return &DareService{
		repo:        repo,
		media:       media,
		notif:       notif,
		now:         time.Now,
		cache:       make(map[string]map[string]*dare.Record),
		highlighted: make(map[string]string),
		keyLocks:    make(map[string]*sync.Mutex),
	}
}

// lockKey serializes mutations per (user, prompt). Different prompts proceed
// in parallel; two writers on the same prompt never interleave their
// existence check, upload and row write.
func (s *DareService) lockKey(clerkID, dareText string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := clerkID + "\x00" + dareText
	m, ok := s.keyLocks[k]
	if !ok {
		m = &sync.Mutex{}
		s.keyLocks[k] = m
	}
	return m
}

// Load fetches all rows for the user and rebuilds the cache. An empty
// clerkID means no session: the caller gets an empty snapshot and a zero
// streak, not an error.
func (s *DareService) Load(ctx context.Context, clerkID string) (*dare.Snapshot, error) {
	if clerkID == "" {
		return &dare.Snapshot{Records: []*dare.Record{}}, nil
	}

	userID, err := s.repo.UserIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dares: %w", err)
	}

	m := make(map[string]*dare.Record, len(records))
	for _, rec := range records {
		m[rec.DareText] = rec
	}

	s.mu.Lock()
	s.cache[clerkID] = m
	s.mu.Unlock()

	return s.Snapshot(clerkID), nil
}

// MarkComplete writes a completed record for the prompt, uploading any new
// media first. The order is fixed: existence check, upload, row write, cache
// swap, then removal of the replaced asset. A failure anywhere before the
// cache swap leaves both the cache and the previous remote state standing.
func (s *DareService) MarkComplete(ctx context.Context, clerkID string, req *dare.CompleteRequest) (*dare.Record, error) {
	if clerkID == "" {
		return nil, ErrUnauthenticated
	}
	if req.DareText == "" {
		return nil, errors.New("dare text is required")
	}

	lock := s.lockKey(clerkID, req.DareText)
	lock.Lock()
	defer lock.Unlock()

	userID, err := s.repo.UserIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	// Existence is checked against the row store, not the cache, so a cache
	// that is stale relative to another session still upserts correctly.
	existing, err := s.repo.GetByKey(ctx, userID, req.DareText)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing dare: %w", err)
	}

	var imageURL, videoURL *string
	uploadedNew := false
	if att := req.Attachment; att != nil {
		url := att.URI
		if !objectstore.IsRemoteURL(url) {
			if att.DataBase64 == "" {
				return nil, errors.New("local media reference has no payload")
			}
			url, err = s.media.Upload(ctx, userID, req.DareText, att.Kind, att.URI, att.DataBase64)
			if err != nil {
				return nil, err
			}
			uploadedNew = true
		}
		if att.Kind == dare.MediaVideo {
			videoURL = &url
		} else {
			imageURL = &url
		}
	}

	now := s.now()
	rec := &dare.Record{
		DareText:       req.DareText,
		Completed:      true,
		ImageURL:       imageURL,
		VideoURL:       videoURL,
		ReflectionText: req.ReflectionText,
		DraftText:      nil,
		CompletedAt:    &now,
	}

	var oldImage, oldVideo *string
	if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		oldImage = existing.ImageURL
		oldVideo = existing.VideoURL
		err = s.repo.Update(ctx, rec)
	} else {
		err = s.repo.Insert(ctx, userID, rec)
	}
	if err != nil {
		if uploadedNew {
			// The row write failed after the object landed in the bucket.
			// Remove it best-effort so it does not sit there orphaned.
			if imageURL != nil {
				s.media.Delete(ctx, *imageURL)
			}
			if videoURL != nil {
				s.media.Delete(ctx, *videoURL)
			}
		}
		return nil, fmt.Errorf("failed to save dare: %w", err)
	}

	s.storeRecord(clerkID, rec)

	// Replaced assets go away only now, with the new state durable. Deleting
	// earlier could leave the record pointing at a missing object if the
	// write had failed.
	for _, old := range []*string{oldImage, oldVideo} {
		if old == nil {
			continue
		}
		if (imageURL != nil && *old == *imageURL) || (videoURL != nil && *old == *videoURL) {
			continue
		}
		s.media.Delete(ctx, *old)
	}

	if s.notif != nil {
		s.notif.NotifyStreakMilestone(ctx, clerkID, s.Streak(clerkID))
	}

	return rec, nil
}

// SaveDraft upserts draft text for a prompt. A dare that is already
// completed never downgrades: its media, reflection and completion timestamp
// stay intact and only the draft text is carried.
func (s *DareService) SaveDraft(ctx context.Context, clerkID, dareText, draftText string) (*dare.Record, error) {
	if clerkID == "" {
		return nil, ErrUnauthenticated
	}
	if dareText == "" {
		return nil, errors.New("dare text is required")
	}

	lock := s.lockKey(clerkID, dareText)
	lock.Lock()
	defer lock.Unlock()

	userID, err := s.repo.UserIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByKey(ctx, userID, dareText)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing dare: %w", err)
	}

	var rec *dare.Record
	if existing != nil {
		rec = existing.Clone()
		rec.DraftText = &draftText
		err = s.repo.Update(ctx, rec)
	} else {
		rec = &dare.Record{
			DareText:  dareText,
			DraftText: &draftText,
		}
		err = s.repo.Insert(ctx, userID, rec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	s.storeRecord(clerkID, rec)
	return rec, nil
}

// Delete removes the record and schedules its media for removal. Media
// deletion is best effort and happens before the row delete; the cache is
// only touched once the row is gone.
func (s *DareService) Delete(ctx context.Context, clerkID, dareText string) error {
	if clerkID == "" {
		return ErrUnauthenticated
	}

	lock := s.lockKey(clerkID, dareText)
	lock.Lock()
	defer lock.Unlock()

	userID, err := s.repo.UserIDByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	existing, err := s.repo.GetByKey(ctx, userID, dareText)
	if err != nil {
		return fmt.Errorf("failed to look up dare: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("no dare found for %q", dareText)
	}

	if existing.ImageURL != nil {
		s.media.Delete(ctx, *existing.ImageURL)
	}
	if existing.VideoURL != nil {
		s.media.Delete(ctx, *existing.VideoURL)
	}

	if err := s.repo.DeleteByKey(ctx, userID, dareText); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache[clerkID], dareText)
	s.mu.Unlock()

	return nil
}

// storeRecord swaps a confirmed record into the cache.
func (s *DareService) storeRecord(clerkID string, rec *dare.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.cache[clerkID]
	if !ok {
		m = make(map[string]*dare.Record)
		s.cache[clerkID] = m
	}
	m[rec.DareText] = rec
}

func (s *DareService) record(clerkID, dareText string) *dare.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache[clerkID][dareText]
}

// Streak derives the consecutive-day count from the cached records, in the
// wall-clock zone of the service clock.
func (s *DareService) Streak(clerkID string) int {
	return s.StreakAt(clerkID, s.now())
}

// StreakAt is Streak with an explicit "now", used when the client reports
// its own timezone.
func (s *DareService) StreakAt(clerkID string, now time.Time) int {
	s.mu.Lock()
	var completions []time.Time
	for _, rec := range s.cache[clerkID] {
		if rec.CompletedAt != nil {
			completions = append(completions, *rec.CompletedAt)
		}
	}
	s.mu.Unlock()

	return streak.Calculate(completions, now)
}

// Snapshot projects the cache into the read model: records newest-first plus
// the streak.
func (s *DareService) Snapshot(clerkID string) *dare.Snapshot {
	return s.SnapshotAt(clerkID, s.now())
}

func (s *DareService) SnapshotAt(clerkID string, now time.Time) *dare.Snapshot {
	s.mu.Lock()
	records := make([]*dare.Record, 0, len(s.cache[clerkID]))
	for _, rec := range s.cache[clerkID] {
		records = append(records, rec)
	}
	s.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		ti, tj := time.Time{}, time.Time{}
		if records[i].CompletedAt != nil {
			ti = *records[i].CompletedAt
		}
		if records[j].CompletedAt != nil {
			tj = *records[j].CompletedAt
		}
		if ti.Equal(tj) {
			return records[i].DareText < records[j].DareText
		}
		return ti.After(tj)
	})

	return &dare.Snapshot{
		Records:    records,
		StreakDays: s.StreakAt(clerkID, now),
	}
}

func (s *DareService) IsCompleted(clerkID, dareText string) bool {
	rec := s.record(clerkID, dareText)
	return rec != nil && rec.Completed
}

func (s *DareService) IsInProgress(clerkID, dareText string) bool {
	rec := s.record(clerkID, dareText)
	return rec != nil && rec.InProgress()
}

func (s *DareService) Image(clerkID, dareText string) *string {
	if rec := s.record(clerkID, dareText); rec != nil {
		return rec.ImageURL
	}
	return nil
}

func (s *DareService) Video(clerkID, dareText string) *string {
	if rec := s.record(clerkID, dareText); rec != nil {
		return rec.VideoURL
	}
	return nil
}

func (s *DareService) Reflection(clerkID, dareText string) *string {
	if rec := s.record(clerkID, dareText); rec != nil {
		return rec.ReflectionText
	}
	return nil
}

func (s *DareService) Draft(clerkID, dareText string) *string {
	if rec := s.record(clerkID, dareText); rec != nil {
		return rec.DraftText
	}
	return nil
}

func (s *DareService) CompletedAt(clerkID, dareText string) *time.Time {
	if rec := s.record(clerkID, dareText); rec != nil {
		return rec.CompletedAt
	}
	return nil
}

// SetHighlighted marks a prompt as just-navigated-to. The mark clears itself
// and is never persisted; it exists purely so the list screen can flash the
// right card.
func (s *DareService) SetHighlighted(clerkID, dareText string) {
	s.mu.Lock()
	s.highlighted[clerkID] = dareText
	s.mu.Unlock()

	time.AfterFunc(highlightDuration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.highlighted[clerkID] == dareText {
			delete(s.highlighted, clerkID)
		}
	})
}

func (s *DareService) Highlighted(clerkID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlighted[clerkID]
}
