package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"wanderlust/internal/config"
)

// cloudinaryUploader is the subset of the Cloudinary upload API in use.
type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// cloudinaryStorage keeps images on Cloudinary. The object key is the public id.
type cloudinaryStorage struct {
	api    cloudinaryUploader
	folder string
}

// NewCloudinary creates a Cloudinary-backed Storage uploading into cfg.Folder.
func NewCloudinary(cfg config.CloudinaryConfig) (Storage, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary cloud name and credentials are required")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	return &cloudinaryStorage{api: &cld.Upload, folder: cfg.Folder}, nil
}

// publicID strips the extension and any leading folder; Cloudinary derives the
// format itself and prefixes the folder.
func publicID(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

func (c *cloudinaryStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	res, err := c.api.Upload(ctx, r, uploader.UploadParams{
		PublicID: publicID(key),
		Folder:   c.folder,
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	if res.Error.Message != "" {
		return ObjectInfo{}, errors.New(res.Error.Message)
	}
	if res.SecureURL == "" || res.PublicID == "" {
		return ObjectInfo{}, errors.New("cloudinary returned an empty url or public id")
	}
	return ObjectInfo{
		Key:         res.PublicID,
		URL:         res.SecureURL,
		Size:        int64(res.Bytes),
		ContentType: opt.ContentType,
	}, nil
}

func (c *cloudinaryStorage) Delete(ctx context.Context, key string) error {
	res, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: key})
	if err != nil {
		return err
	}
	if res.Error.Message != "" {
		return errors.New(res.Error.Message)
	}
	return nil
}
