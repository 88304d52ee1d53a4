// Package storage uploads finished export archives to S3-compatible object
// storage (AWS S3, Cloudflare R2, MinIO). It is a delivery channel only: the
// working set itself never persists beyond the session.
package storage

import (
	"context"
	"io"
)

// ArchiveStore defines the operations the export pipeline needs from object
// storage.
type ArchiveStore interface {
	// Upload stores an archive under key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the URL for accessing an uploaded archive
	GetURL(key string) string
}
