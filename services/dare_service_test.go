package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"dailyDareAPI/internal/objectstore"
	"dailyDareAPI/internal/types/dare"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory DareRepository for a single user. It appends to
// the same call log as the fake storage so tests can assert cross-boundary
// ordering.
type fakeRepo struct {
	userID  uuid.UUID
	records map[string]*dare.Record
	log     *[]string

	failInsert bool
	failUpdate bool
	failDelete bool
}

func newFakeRepo(log *[]string) *fakeRepo {
	return &fakeRepo{
		userID:  testOwnerID,
		records: make(map[string]*dare.Record),
		log:     log,
	}
}

func (f *fakeRepo) UserIDByClerkID(_ context.Context, clerkID string) (uuid.UUID, error) {
	if clerkID == "" {
		return uuid.Nil, errors.New("user not found")
	}
	return f.userID, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, _ uuid.UUID) ([]*dare.Record, error) {
	var out []*dare.Record
	for _, rec := range f.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (f *fakeRepo) GetByKey(_ context.Context, _ uuid.UUID, dareText string) (*dare.Record, error) {
	rec, ok := f.records[dareText]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (f *fakeRepo) Insert(_ context.Context, _ uuid.UUID, rec *dare.Record) error {
	*f.log = append(*f.log, "insert "+rec.DareText)
	if f.failInsert {
		return errors.New("insert failed")
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	f.records[rec.DareText] = rec.Clone()
	return nil
}

func (f *fakeRepo) Update(_ context.Context, rec *dare.Record) error {
	*f.log = append(*f.log, "update "+rec.DareText)
	if f.failUpdate {
		return errors.New("update failed")
	}
	rec.UpdatedAt = time.Now()
	f.records[rec.DareText] = rec.Clone()
	return nil
}

func (f *fakeRepo) DeleteByKey(_ context.Context, _ uuid.UUID, dareText string) error {
	*f.log = append(*f.log, "deleterow "+dareText)
	if f.failDelete {
		return errors.New("delete failed")
	}
	delete(f.records, dareText)
	return nil
}

const (
	testClerkID = "user_2abc"
	photoDare   = "Take a photo of something beautiful!"
	textDare    = "Write a letter to your future self 5 years from now"
)

var testNow = time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

func newTestDareService() (*DareService, *fakeRepo, *fakeStorage) {
	storage := newFakeStorage()
	repo := newFakeRepo(&storage.calls)

	media := NewMediaService(storage, "dare-images", "dare-videos")
	media.now = func() time.Time { return testNow }

	svc := NewDareService(repo, media, nil)
	svc.now = func() time.Time { return testNow }

	return svc, repo, storage
}

// snapshotClone deep-copies the cached state for before/after comparisons.
func snapshotClone(svc *DareService, clerkID string) []*dare.Record {
	snap := svc.SnapshotAt(clerkID, testNow)
	out := make([]*dare.Record, 0, len(snap.Records))
	for _, rec := range snap.Records {
		out = append(out, rec.Clone())
	}
	return out
}

func seedCompleted(repo *fakeRepo, dareText string, imageURL *string, completedAt time.Time) {
	repo.records[dareText] = &dare.Record{
		ID:          uuid.New(),
		DareText:    dareText,
		Completed:   true,
		ImageURL:    imageURL,
		CompletedAt: &completedAt,
		CreatedAt:   completedAt,
		UpdatedAt:   completedAt,
	}
}

func TestLoadWithoutSession(t *testing.T) {
	svc, _, _ := newTestDareService()

	snap, err := svc.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
	assert.Equal(t, 0, snap.StreakDays)
}

func TestMarkCompleteInsertsNewRecord(t *testing.T) {
	svc, repo, _ := newTestDareService()

	payload := base64.StdEncoding.EncodeToString([]byte("fake image"))
	rec, err := svc.MarkComplete(context.Background(), testClerkID, &dare.CompleteRequest{
		DareText: photoDare,
		Attachment: &dare.Attachment{
			Kind:       dare.MediaImage,
			URI:        "file:///dcim/IMG_001.jpg",
			DataBase64: payload,
		},
	})
	require.NoError(t, err)

	assert.True(t, rec.Completed)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, testNow, *rec.CompletedAt)
	assert.Nil(t, rec.DraftText)
	require.NotNil(t, rec.ImageURL)
	assert.True(t, objectstore.IsRemoteURL(*rec.ImageURL), "persisted reference must be remote")

	assert.True(t, svc.IsCompleted(testClerkID, photoDare))
	assert.Equal(t, 1, svc.StreakAt(testClerkID, testNow))
	assert.Contains(t, repo.records, photoDare)
}

func TestMarkCompleteUnauthenticated(t *testing.T) {
	svc, _, _ := newTestDareService()

	_, err := svc.MarkComplete(context.Background(), "", &dare.CompleteRequest{DareText: photoDare})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestMarkCompleteReusesRemoteAttachment(t *testing.T) {
	svc, _, storage := newTestDareService()

	url := objectstore.PublicURL("https://fake.storage", "dare-images", "u/existing.jpg")
	rec, err := svc.MarkComplete(context.Background(), testClerkID, &dare.CompleteRequest{
		DareText:   photoDare,
		Attachment: &dare.Attachment{Kind: dare.MediaImage, URI: url},
	})
	require.NoError(t, err)

	assert.Equal(t, url, *rec.ImageURL)
	for _, call := range storage.calls {
		assert.False(t, strings.HasPrefix(call, "upload"), "no upload expected, got %q", call)
	}
}

func TestMarkCompleteRejectsLocalReferenceWithoutPayload(t *testing.T) {
	svc, _, storage := newTestDareService()

	_, err := svc.MarkComplete(context.Background(), testClerkID, &dare.CompleteRequest{
		DareText:   photoDare,
		Attachment: &dare.Attachment{Kind: dare.MediaImage, URI: "file:///dcim/a.jpg"},
	})
	assert.Error(t, err)
	assert.Empty(t, storage.calls)
}

func TestMarkCompleteReplaceDeletesOldAssetAfterUpload(t *testing.T) {
	svc, repo, storage := newTestDareService()

	oldURL := objectstore.PublicURL("https://fake.storage", "dare-images", "u/old.jpg")
	seedCompleted(repo, photoDare, &oldURL, testNow.AddDate(0, 0, -3))

	_, err := svc.Load(context.Background(), testClerkID)
	require.NoError(t, err)

	storage.calls = nil
	_, err = svc.MarkComplete(context.Background(), testClerkID, &dare.CompleteRequest{
		DareText: photoDare,
		Attachment: &dare.Attachment{
			Kind:       dare.MediaImage,
			URI:        "file:///dcim/new.jpg",
			DataBase64: base64.StdEncoding.EncodeToString([]byte("new image")),
		},
	})
	require.NoError(t, err)

	var uploadIdx, updateIdx, deleteIdx = -1, -1, -1
	for i, call := range storage.calls {
		switch {
		case strings.HasPrefix(call, "upload "):
			uploadIdx = i
		case strings.HasPrefix(call, "update "):
			updateIdx = i
		case call == "delete dare-images/u/old.jpg":
			deleteIdx = i
		}
	}

	require.NotEqual(t, -1, uploadIdx, "calls: %v", storage.calls)
	require.NotEqual(t, -1, updateIdx, "calls: %v", storage.calls)
	require.NotEqual(t, -1, deleteIdx, "calls: %v", storage.calls)
	assert.Less(t, uploadIdx, deleteIdx, "old asset must outlive the new upload")
	assert.Less(t, updateIdx, deleteIdx, "old asset must outlive the row write")
}

func TestMarkCompleteRowWriteFailureLeavesCacheUntouched(t *testing.T) {
	svc, repo, storage := newTestDareService()

	oldURL := objectstore.PublicURL("https://fake.storage", "dare-images", "u/old.jpg")
	seedCompleted(repo, photoDare, &oldURL, testNow.AddDate(0, 0, -1))

	_, err := svc.Load(context.Background(), testClerkID)
	require.NoError(t, err)

	before := snapshotClone(svc, testClerkID)
	repo.failUpdate = true
	storage.calls = nil

	_, err = svc.MarkComplete(context.Background(), testClerkID, &dare.CompleteRequest{
		DareText: photoDare,
		Attachment: &dare.Attachment{
			Kind:       dare.MediaImage,
			URI:        "file:///dcim/new.jpg",
			DataBase64: base64.StdEncoding.EncodeToString([]byte("new image")),
		},
	})
	require.Error(t, err)

	assert.Equal(t, before, snapshotClone(svc, testClerkID))

	// The freshly uploaded object is cleaned up; the old one survives.
	var cleanedNew, deletedOld bool
	for _, call := range storage.calls {
		if strings.HasPrefix(call, "delete dare-images/") {
			if call == "delete dare-images/u/old.jpg" {
				deletedOld = true
			} else {
				cleanedNew = true
			}
		}
	}
	assert.True(t, cleanedNew, "orphaned upload should be removed, calls: %v", storage.calls)
	assert.False(t, deletedOld, "previous asset must stand after a failed write")
}

func TestMarkCompleteUploadFailureAborts(t *testing.T) {
	svc, repo, storage := newTestDareService()

	_, err := svc.Load(context.Background(), testClerkID)
	require.NoError(t, err)

	before := snapshotClone(svc, testClerkID)
	storage.failUpload = true

	_, err = svc.MarkComplete(context.Background(), testClerkID, &dare.CompleteRequest{
		DareText: photoDare,
		Attachment: &dare.Attachment{
			Kind:       dare.MediaImage,
			URI:        "file:///dcim/new.jpg",
			DataBase64: base64.StdEncoding.EncodeToString([]byte("new image")),
		},
	})
	require.Error(t, err)

	assert.Equal(t, before, snapshotClone(svc, testClerkID))
	assert.Empty(t, repo.records, "no row may be written after a failed upload")
}

func TestSaveDraftDoesNotDowngradeCompletion(t *testing.T) {
	svc, repo, _ := newTestDareService()

	completedAt := testNow.AddDate(0, 0, -2)
	imageURL := objectstore.PublicURL("https://fake.storage", "dare-images", "u/done.jpg")
	seedCompleted(repo, photoDare, &imageURL, completedAt)

	_, err := svc.Load(context.Background(), testClerkID)
	require.NoError(t, err)

	rec, err := svc.SaveDraft(context.Background(), testClerkID, photoDare, "second thoughts...")
	require.NoError(t, err)

	assert.True(t, rec.Completed)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, completedAt, *rec.CompletedAt)
	require.NotNil(t, rec.ImageURL)
	assert.Equal(t, imageURL, *rec.ImageURL)
	require.NotNil(t, rec.DraftText)
	assert.Equal(t, "second thoughts...", *rec.DraftText)
}

func TestSaveDraftCreatesRecord(t *testing.T) {
	svc, repo, _ := newTestDareService()

	rec, err := svc.SaveDraft(context.Background(), testClerkID, textDare, "Dear future me,")
	require.NoError(t, err)

	assert.False(t, rec.Completed)
	assert.Nil(t, rec.CompletedAt)
	assert.Equal(t, dare.StateDraft, rec.State())

	assert.True(t, svc.IsInProgress(testClerkID, textDare))
	assert.False(t, svc.IsCompleted(testClerkID, textDare))
	assert.Contains(t, repo.records, textDare)
	assert.Equal(t, 0, svc.StreakAt(testClerkID, testNow), "drafts never count toward the streak")
}

func TestSaveDraftReplacesText(t *testing.T) {
	svc, _, _ := newTestDareService()

	_, err := svc.SaveDraft(context.Background(), testClerkID, textDare, "first pass")
	require.NoError(t, err)
	_, err = svc.SaveDraft(context.Background(), testClerkID, textDare, "second pass")
	require.NoError(t, err)

	assert.Equal(t, "second pass", *svc.Draft(testClerkID, textDare))
}

func TestDeleteClearsStreakContribution(t *testing.T) {
	svc, repo, storage := newTestDareService()

	imageURL := objectstore.PublicURL("https://fake.storage", "dare-images", "u/today.jpg")
	seedCompleted(repo, photoDare, &imageURL, testNow)

	_, err := svc.Load(context.Background(), testClerkID)
	require.NoError(t, err)
	require.Equal(t, 1, svc.StreakAt(testClerkID, testNow))

	require.NoError(t, svc.Delete(context.Background(), testClerkID, photoDare))

	assert.Equal(t, 0, svc.StreakAt(testClerkID, testNow))
	assert.False(t, svc.IsCompleted(testClerkID, photoDare))
	assert.NotContains(t, repo.records, photoDare)
	assert.Contains(t, storage.calls, "delete dare-images/u/today.jpg")
}

func TestDeleteRowFailureKeepsCache(t *testing.T) {
	svc, repo, _ := newTestDareService()

	seedCompleted(repo, photoDare, nil, testNow)
	_, err := svc.Load(context.Background(), testClerkID)
	require.NoError(t, err)

	before := snapshotClone(svc, testClerkID)
	repo.failDelete = true

	require.Error(t, svc.Delete(context.Background(), testClerkID, photoDare))
	assert.Equal(t, before, snapshotClone(svc, testClerkID))
}

func TestDeleteUnknownDare(t *testing.T) {
	svc, _, _ := newTestDareService()

	err := svc.Delete(context.Background(), testClerkID, "never seen")
	assert.ErrorContains(t, err, "no dare found")
}

func TestReCompleteRefreshesTimestamp(t *testing.T) {
	svc, repo, _ := newTestDareService()

	seedCompleted(repo, photoDare, nil, testNow.AddDate(0, 0, -5))
	_, err := svc.Load(context.Background(), testClerkID)
	require.NoError(t, err)

	reflection := "take two"
	rec, err := svc.MarkComplete(context.Background(), testClerkID, &dare.CompleteRequest{
		DareText:       photoDare,
		ReflectionText: &reflection,
	})
	require.NoError(t, err)

	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, testNow, *rec.CompletedAt, "re-completion moves the credit to today")
	assert.Equal(t, 1, svc.StreakAt(testClerkID, testNow))
}

func TestSnapshotSortsNewestFirst(t *testing.T) {
	svc, repo, _ := newTestDareService()

	seedCompleted(repo, "oldest", nil, testNow.AddDate(0, 0, -9))
	seedCompleted(repo, "newest", nil, testNow)
	seedCompleted(repo, "middle", nil, testNow.AddDate(0, 0, -4))

	_, err := svc.Load(context.Background(), testClerkID)
	require.NoError(t, err)

	snap := svc.SnapshotAt(testClerkID, testNow)
	require.Len(t, snap.Records, 3)
	assert.Equal(t, "newest", snap.Records[0].DareText)
	assert.Equal(t, "middle", snap.Records[1].DareText)
	assert.Equal(t, "oldest", snap.Records[2].DareText)
}

func TestHighlight(t *testing.T) {
	svc, _, _ := newTestDareService()

	assert.Equal(t, "", svc.Highlighted(testClerkID))
	svc.SetHighlighted(testClerkID, photoDare)
	assert.Equal(t, photoDare, svc.Highlighted(testClerkID))
}

func TestConcurrentCompletionsOnDistinctDares(t *testing.T) {
	svc, _, _ := newTestDareService()

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			_, err := svc.MarkComplete(context.Background(), testClerkID, &dare.CompleteRequest{
				DareText: fmt.Sprintf("dare %d", i),
			})
			done <- err
		}(i)
	}

	for i := 0; i < 10; i++ {
		require.NoError(t, <-done)
	}

	assert.Len(t, svc.SnapshotAt(testClerkID, testNow).Records, 10)
}
