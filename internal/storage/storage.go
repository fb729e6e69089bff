package storage

import (
	"context"
	"io"
)

// Package storage contains object storage backends for listing images.
// Implementations stream uploads and never touch local disk.

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object. Key is the storage identifier used for
// later deletion; URL is where clients fetch it from.
type ObjectInfo struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// Storage is the object store used for listing images.
type Storage interface {
	// Put uploads an object under the given key. Backends may rewrite the key (the
	// returned ObjectInfo.Key is authoritative).
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
}
