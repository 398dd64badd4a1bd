// Package storage is the object storage gateway for rendered export files.
package storage

import (
	"context"
	"time"
)

// Store is a durable blob store. Upload failures are transport-level and
// eligible for the export queue's retry policy. SignedURL signs without
// verifying the object exists; existence is the caller's concern.
type Store interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// PublicURL returns the public URL for a key when a public base URL is
	// configured; ok is false for private buckets.
	PublicURL(key string) (url string, ok bool)
}
