package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

type FileConfig struct {
	Directory string
}

type fileStorage struct {
	config FileConfig
}

func NewFileStorage(f FileConfig) Storage {
	if f.Directory == "" {
		f.Directory = "."
	}
	return &fileStorage{
		config: f,
	}
}

func (a *fileStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(a.config.Directory, filepath.FromSlash(key))
	if rel, err := filepath.Rel(a.config.Directory, path); err != nil || strings.HasPrefix(rel, "..") {
		return "", xerrors.Errorf("key %q escapes %s", key, a.config.Directory)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", xerrors.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", xerrors.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

func (a *fileStorage) Get(ctx context.Context, url string) ([]byte, error) {
	data, err := os.ReadFile(strings.TrimPrefix(url, "file://"))
	if err != nil {
		return nil, xerrors.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
