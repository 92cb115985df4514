// Package storage persists extracted image bytes and fetches source objects.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BlobStore saves an image extracted from document base under name and
// returns a locator for it
type BlobStore interface {
	Put(ctx context.Context, base, name string, data []byte, contentType string) (string, error)
}

// Local writes blobs to a directory on disk
type Local struct {
	root string
}

// NewLocal creates a local blob store rooted at dir
func NewLocal(dir string) *Local {
	if dir == "" {
		dir = "local_assets"
	}
	return &Local{root: dir}
}

// Put writes data to {root}/{name} and returns "{root}/{name}" in slash form
func (l *Local) Put(ctx context.Context, base, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid blob name %q", name)
	}

	if err := os.MkdirAll(l.root, 0755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.root, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write asset %s: %w", name, err)
	}

	return path.Join(filepath.ToSlash(l.root), name), nil
}
