// Package imaging stores listing images and keeps the listing's image slot consistent.
package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"wanderlust/internal/model"
	"wanderlust/internal/storage"
)

var (
	ErrNoImage           = errors.New("no image supplied")
	ErrUnsupportedType   = errors.New("unsupported image content type")
	ErrInvalidDescriptor = errors.New("image descriptor requires url and filename")
)

// Upload is a file received with a create or update request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Manager uploads and discards listing images on the configured object store.
type Manager struct {
	store  storage.Storage
	newKey func(ext string) string
}

func NewManager(store storage.Storage) *Manager {
	return &Manager{store: store, newKey: objectKey}
}

func objectKey(ext string) string {
	return "listings/" + uuid.NewString() + ext
}

// Upload stores the file and returns its descriptor.
func (m *Manager) Upload(ctx context.Context, up *Upload) (model.ImageDescriptor, error) {
	if up == nil || up.Body == nil {
		return model.ImageDescriptor{}, ErrNoImage
	}
	if !strings.HasPrefix(strings.ToLower(up.ContentType), "image/") {
		return model.ImageDescriptor{}, fmt.Errorf("%w: %q", ErrUnsupportedType, up.ContentType)
	}

	size := up.Size
	if size <= 0 {
		size = -1
	}
	ext := strings.ToLower(filepath.Ext(up.Filename))
	info, err := m.store.Put(ctx, m.newKey(ext), up.Body, storage.PutObjectOptions{
		Size:        size,
		ContentType: up.ContentType,
		Metadata:    map[string]string{"original-filename": filepath.Base(up.Filename)},
	})
	if err != nil {
		return model.ImageDescriptor{}, fmt.Errorf("store image: %w", err)
	}

	d := model.ImageDescriptor{URL: info.URL, Filename: info.Key}
	if !d.Valid() {
		return model.ImageDescriptor{}, ErrInvalidDescriptor
	}
	return d, nil
}

// Discard deletes the stored object behind d. An empty descriptor is a no-op.
func (m *Manager) Discard(ctx context.Context, d model.ImageDescriptor) error {
	if d.Filename == "" {
		return nil
	}
	return m.store.Delete(ctx, d.Filename)
}

// Attach sets the listing's image slot, replacing any previous descriptor.
func Attach(l *model.Listing, d model.ImageDescriptor) error {
	if !d.Valid() {
		return ErrInvalidDescriptor
	}
	l.Image = &model.ImageDescriptor{URL: d.URL, Filename: d.Filename}
	return nil
}

// ThumbnailURL inserts sizing parameters after the first "/upload" segment of the
// stored URL. URLs without that segment are returned as is.
func ThumbnailURL(d model.ImageDescriptor, width, height int) string {
	return strings.Replace(d.URL, "/upload", fmt.Sprintf("/upload/h_%d,w_%d", height, width), 1)
}
