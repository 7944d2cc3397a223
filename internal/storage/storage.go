// Package storage persists screenshots and diff images.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type Storage interface {
	// Put stores data under key and returns the URL Get accepts.
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, url string) ([]byte, error)
}

type Kind string

const (
	KindCapture Kind = "capture"
	KindDiff    Kind = "diff"
)

// Key names an artifact "Comparison/<kind>/<digest of subject>/<timestamp>.<ext>" so that
// artifacts of the same page or page pair sort by time.
func Key(kind Kind, subject string, at time.Time, ext string) string {
	digest := sha256.Sum256([]byte(subject))
	return fmt.Sprintf("Comparison/%s/%s/%s.%s", kind, hex.EncodeToString(digest[:])[:16], at.UTC().Format("20060102150405.000"), ext)
}
