package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tender_spider/internal/models"
)

// SeenFileName is the state file inside the cache directory.
const SeenFileName = "seen.json"

// FileBackend keeps the state in one JSON file, replaced atomically on save.
type FileBackend struct {
	path string
}

func NewFileBackend(cacheDir string) *FileBackend {
	return &FileBackend{path: filepath.Join(cacheDir, SeenFileName)}
}

func (f *FileBackend) Load(_ context.Context) (models.SeenState, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.SeenState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return decodeState(data)
}

func (f *FileBackend) Save(_ context.Context, state models.SeenState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, SeenFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

func (f *FileBackend) Close(context.Context) error { return nil }
