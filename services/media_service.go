package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"dailyDareAPI/internal/objectstore"
	"dailyDareAPI/internal/transcode"
	"dailyDareAPI/internal/types/dare"

	"github.com/google/uuid"
)

// MediaService makes captured media durable and removes assets that no record
// points at anymore. Uploads are strict (a failure aborts the caller's
// mutation); deletes are best effort and never fail the enclosing operation.
type MediaService struct {
	store       objectstore.Client
	imageBucket string
	videoBucket string
	now         func() time.Time
}

func NewMediaService(store objectstore.Client, imageBucket, videoBucket string) *MediaService {
	return &MediaService{
		store:       store,
		imageBucket: imageBucket,
		videoBucket: videoBucket,
		now:         time.Now,
	}
}

var imageContentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"heic": "image/heic",
}

var videoContentTypes = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/mov",
	"avi":  "video/avi",
	"webm": "video/webm",
	"mkv":  "video/mkv",
}

// Upload decodes the base64 payload and writes it to the bucket for kind
// under a deterministic key. It returns the public URL, never a placeholder:
// any failure leaves the caller with an error and nothing to persist.
func (s *MediaService) Upload(ctx context.Context, ownerID uuid.UUID, dareText string, kind dare.MediaKind, localURI, base64Data string) (string, error) {
	ext := fileExt(localURI)

	var contentType, bucket string
	switch kind {
	case dare.MediaImage:
		ct, ok := imageContentTypes[ext]
		if !ok {
			return "", fmt.Errorf("unsupported image extension %q", ext)
		}
		contentType, bucket = ct, s.imageBucket
	case dare.MediaVideo:
		ct, ok := videoContentTypes[ext]
		if !ok {
			return "", fmt.Errorf("unsupported video extension %q", ext)
		}
		contentType, bucket = ct, s.videoBucket
	default:
		return "", fmt.Errorf("unsupported media kind %q", kind)
	}

	data, err := transcode.Decode(base64Data)
	if err != nil {
		return "", fmt.Errorf("failed to decode media payload: %w", err)
	}

	objectPath := fmt.Sprintf("%s/%s_%d.%s", ownerID, sanitizeDareKey(dareText), s.now().Unix(), ext)

	url, err := s.store.Upload(ctx, bucket, objectPath, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	log.Printf("Uploaded %s to %s/%s", kind, bucket, objectPath)
	return url, nil
}

// Delete removes a previously uploaded asset. Returns false without touching
// the network when uri is not a recognized remote reference (a local picker
// path, for example). Storage failures are logged and swallowed.
func (s *MediaService) Delete(ctx context.Context, uri string) bool {
	bucket, objectPath, ok := objectstore.ParsePublicURL(uri)
	if !ok {
		return false
	}

	if err := s.store.Delete(ctx, bucket, objectPath); err != nil {
		log.Printf("Failed to delete media %s/%s: %v", bucket, objectPath, err)
		return false
	}

	log.Printf("Deleted media %s/%s", bucket, objectPath)
	return true
}

func fileExt(uri string) string {
	idx := strings.LastIndexByte(uri, '.')
	if idx < 0 || idx == len(uri)-1 {
		return "jpg"
	}
	return strings.ToLower(uri[idx+1:])
}

// sanitizeDareKey makes the free-text prompt safe inside an object key.
func sanitizeDareKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
