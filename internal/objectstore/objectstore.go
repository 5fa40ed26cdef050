// Package objectstore wraps the media bucket. The public-URL helpers are what
// let the rest of the app distinguish a durable remote reference from a
// device-local file path without touching the network.
package objectstore

import (
	"context"
	"strings"
)

// Client is the storage boundary consumed by the media service. The S3
// implementation lives in this package; tests substitute a fake.
type Client interface {
	Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, bucket, objectPath string) error
}

// publicPathMarker is the fixed segment every public media URL carries:
// <base>/storage/v1/object/public/<bucket>/<path>. Its presence is the test
// for "already remote"; local picker URIs (file://..., content://...) never
// contain it.
const publicPathMarker = "/storage/v1/object/public/"

func IsRemoteURL(uri string) bool {
	return strings.Contains(uri, publicPathMarker)
}

// ParsePublicURL extracts the bucket and object path from a public media URL.
// ok is false for anything that is not a recognized remote reference.
func ParsePublicURL(uri string) (bucket, objectPath string, ok bool) {
	_, rest, found := strings.Cut(uri, publicPathMarker)
	if !found {
		return "", "", false
	}
	bucket, objectPath, found = strings.Cut(rest, "/")
	if !found || bucket == "" || objectPath == "" {
		return "", "", false
	}
	return bucket, objectPath, true
}

// PublicURL builds the durable URL for an uploaded object.
func PublicURL(base, bucket, objectPath string) string {
	return strings.TrimRight(base, "/") + publicPathMarker + bucket + "/" + objectPath
}
