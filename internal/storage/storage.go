// Package storage publishes generated documents and finds previously published ones.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Lookup when no document exists under the key.
var ErrNotFound = errors.New("document not found")

// Publisher stores markdown documents and returns a URL they can be read from.
type Publisher interface {
	Publish(ctx context.Context, key, markdown string) (string, error)
	Lookup(ctx context.Context, key string) (string, error)
}

// ObjectKey returns the key a video's document is stored under.
func ObjectKey(videoID string) string {
	if videoID == "" {
		videoID = "unknown"
	}
	return "docs/youtube/" + videoID + ".md"
}
