package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

type memoryStorage struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{saved: make(map[string][]byte)}
}

func (s *memoryStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.saved[name] = data
	return "https://cdn.test/" + name, nil
}

func (s *memoryStorage) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.saved, key)
	return nil
}

type fixedProber struct {
	seconds    float64
	err        error
	probedPath string
}

func (p *fixedProber) Duration(_ context.Context, path string) (float64, error) {
	p.probedPath = path
	return p.seconds, p.err
}

func TestUploadImageStoresUnderFolder(t *testing.T) {
	storage := newMemoryStorage()
	lib := NewLibrary(storage, &fixedProber{})

	asset, err := lib.UploadImage(context.Background(), "avatars", "Photo.PNG", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("upload image: %v", err)
	}
	if !strings.HasPrefix(asset.Key, "avatars/") || !strings.HasSuffix(asset.Key, ".png") {
		t.Fatalf("unexpected key %q", asset.Key)
	}
	if asset.URL != "https://cdn.test/"+asset.Key {
		t.Fatalf("unexpected url %q", asset.URL)
	}
	if !bytes.Equal(storage.saved[asset.Key], []byte("png-bytes")) {
		t.Fatal("stored bytes do not match the upload")
	}
}

func TestUploadVideoProbesAndStoresFullContent(t *testing.T) {
	storage := newMemoryStorage()
	prober := &fixedProber{seconds: 17.25}
	lib := NewLibrary(storage, prober)

	asset, duration, err := lib.UploadVideo(context.Background(), "videos", "clip.mp4", strings.NewReader("mp4-bytes"))
	if err != nil {
		t.Fatalf("upload video: %v", err)
	}
	if duration != 17.25 {
		t.Fatalf("expected probed duration, got %v", duration)
	}
	if !bytes.Equal(storage.saved[asset.Key], []byte("mp4-bytes")) {
		t.Fatal("stored bytes do not match the upload")
	}
	if _, err := os.Stat(prober.probedPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected the staging file to be removed, stat err = %v", err)
	}
}

func TestUploadVideoProbeFailureCleansUp(t *testing.T) {
	storage := newMemoryStorage()
	prober := &fixedProber{err: errors.New("no such stream")}
	lib := NewLibrary(storage, prober)

	_, _, err := lib.UploadVideo(context.Background(), "videos", "clip.mp4", strings.NewReader("mp4-bytes"))
	if err == nil {
		t.Fatal("expected the probe failure to surface")
	}
	if len(storage.saved) != 0 {
		t.Fatal("expected nothing to be stored")
	}
	if _, statErr := os.Stat(prober.probedPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected the staging file to be removed, stat err = %v", statErr)
	}
}

func TestRemoveIgnoresEmptyKey(t *testing.T) {
	storage := newMemoryStorage()
	lib := NewLibrary(storage, &fixedProber{})

	if err := lib.Remove(context.Background(), ""); err != nil {
		t.Fatalf("remove empty key: %v", err)
	}
	if len(storage.deleted) != 0 {
		t.Fatal("expected no delete call for an empty key")
	}

	if err := lib.Remove(context.Background(), "avatars/x"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(storage.deleted) != 1 || storage.deleted[0] != "avatars/x" {
		t.Fatalf("expected one delete, got %v", storage.deleted)
	}
}
