// Package storage brokers time-bounded presigned URLs for object storage.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider (MinIO, AWS S3).
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the underlying signer is unreachable or
// rejects the key. Issuance is never retried here; callers observe a single
// failed attempt per request.
var ErrUnavailable = errors.New("object storage unavailable")

// Grant is a freshly issued presigned URL and its expiry. Grants are never
// persisted; a new one is issued for every response that needs one.
type Grant struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Signer exchanges an internal object key for a presigned URL. Successive
// calls for the same key may yield different URLs; callers must not cache a
// grant as a substitute for a fresh call.
type Signer interface {
	// SignedGetURL issues a time-bounded download URL for key.
	SignedGetURL(ctx context.Context, key string) (Grant, error)
	// SignedPutURL issues a time-bounded upload URL for key.
	SignedPutURL(ctx context.Context, key string) (Grant, error)
}
