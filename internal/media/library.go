package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AssetStorage persists uploaded blobs and serves them at public URLs.
type AssetStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// DurationProber reads the playable duration of a local media file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Asset is a stored blob: the public URL clients fetch and the key used to
// delete or replace it later.
type Asset struct {
	URL string
	Key string
}

// Library moves uploads into the object store. Video uploads are staged
// through a temporary file so their duration can be probed before storage;
// the staging file is removed on success and on failure alike.
type Library struct {
	storage AssetStorage
	prober  DurationProber
}

// NewLibrary wires the blob store and the duration prober together.
func NewLibrary(storage AssetStorage, prober DurationProber) *Library {
	if storage == nil {
		panic("media: storage is required")
	}
	if prober == nil {
		panic("media: prober is required")
	}
	return &Library{storage: storage, prober: prober}
}

// UploadImage streams an image straight into the object store under the
// given folder.
func (l *Library) UploadImage(ctx context.Context, folder, filename string, r io.Reader) (Asset, error) {
	key := objectKey(folder, filename)
	url, err := l.storage.Save(ctx, key, r)
	if err != nil {
		return Asset{}, fmt.Errorf("upload image: %w", err)
	}
	return Asset{URL: url, Key: key}, nil
}

// UploadVideo stages the upload on disk, probes its duration, then moves it
// into the object store. The duration is returned in seconds.
func (l *Library) UploadVideo(ctx context.Context, folder, filename string, r io.Reader) (Asset, float64, error) {
	staging, err := os.CreateTemp("", "upload-*"+filepath.Ext(filename))
	if err != nil {
		return Asset{}, 0, fmt.Errorf("stage upload: %w", err)
	}
	defer func() {
		staging.Close()
		os.Remove(staging.Name())
	}()

	if _, err := io.Copy(staging, r); err != nil {
		return Asset{}, 0, fmt.Errorf("stage upload: %w", err)
	}

	duration, err := l.prober.Duration(ctx, staging.Name())
	if err != nil {
		return Asset{}, 0, fmt.Errorf("probe upload: %w", err)
	}

	if _, err := staging.Seek(0, io.SeekStart); err != nil {
		return Asset{}, 0, fmt.Errorf("rewind upload: %w", err)
	}

	key := objectKey(folder, filename)
	url, err := l.storage.Save(ctx, key, staging)
	if err != nil {
		return Asset{}, 0, fmt.Errorf("upload video: %w", err)
	}

	return Asset{URL: url, Key: key}, duration, nil
}

// Remove deletes a stored asset. Empty keys are ignored so callers can pass
// through records that never had the asset.
func (l *Library) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return l.storage.Delete(ctx, key)
}

// objectKey builds a collision-free key preserving the upload's extension.
func objectKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s%s", strings.Trim(folder, "/"), uuid.NewString(), ext)
}
