package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// DirPublisher writes documents below a local directory and returns file:// URLs.
type DirPublisher struct {
	root string
}

func NewDirPublisher(root string) (*DirPublisher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid output directory: %w", err)
	}
	return &DirPublisher{root: abs}, nil
}

func (d *DirPublisher) path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	return filepath.Join(d.root, rel), nil
}

func (d *DirPublisher) Publish(ctx context.Context, key, markdown string) (string, error) {
	path, err := d.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	return fileURL(path), nil
}

func (d *DirPublisher) Lookup(ctx context.Context, key string) (string, error) {
	path, err := d.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return fileURL(path), nil
}

func fileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
