package storage_test

import (
	"context"
	"path/filepath"
	"regiondiff/internal/storage"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := storage.NewFileStorage(storage.FileConfig{Directory: dir})

	url, err := s.Put(ctx, "Comparison/diff/abc/1.png", []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(filepath.Join(dir, "Comparison", "diff", "abc", "1.png"), url); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	got, err := s.Get(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte("data"), got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := s.Put(ctx, "../escape.png", []byte("data")); err == nil {
		t.Errorf("expected keys outside the directory to be rejected")
	}
	if _, err := s.Get(ctx, filepath.Join(dir, "missing.png")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestKey(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 45, 123000000, time.UTC)

	got := storage.Key(storage.KindDiff, "https://example.com", at, "png")
	if !strings.HasPrefix(got, "Comparison/diff/") || !strings.HasSuffix(got, "/20240301123045.123.png") {
		t.Errorf("unexpected key %s", got)
	}
	if storage.Key(storage.KindDiff, "https://example.com", at, "png") != got {
		t.Errorf("keys are not deterministic")
	}
	if storage.Key(storage.KindCapture, "https://example.org", at, "png") == got {
		t.Errorf("different subjects share a key")
	}
}
