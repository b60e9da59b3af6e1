// Package storage defines the Storage interface for gem blob storage and the
// backend factory.
//
// Backends register themselves via an init() function in their own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return New(cfg)
//	    })
//	}
//
// cmd/server imports each backend with a blank import to trigger init(), so
// adding a backend touches no factory code.
package storage

import (
	"context"
	"io"
)

// Storage is the interface every gem blob backend implements
type Storage interface {
	// Upload stores a blob and returns its path, size, and SHA-256 checksum
	Upload(ctx context.Context, path string, reader io.Reader, size int64) (*UploadResult, error)

	// Download retrieves a blob as a reader the caller must close
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a blob; deleting a missing blob is not an error
	Delete(ctx context.Context, path string) error

	// Exists reports whether a blob is present at the path
	Exists(ctx context.Context, path string) (bool, error)
}

// UploadResult describes a stored blob
type UploadResult struct {
	Path     string
	Size     int64
	Checksum string
}
