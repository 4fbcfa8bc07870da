package port

import (
	"context"
	"io"
	"time"
)

// BlobStore stores document payloads under opaque keys.
type BlobStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL for the object.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
