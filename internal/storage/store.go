// Package storage keeps uploaded documents and generated balance sheets,
// either in a local directory or in a GCS bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrNotExist is returned by Open when the named file is gone.
	ErrNotExist = errors.New("file does not exist")
	// ErrInvalidName rejects names that would escape the store.
	ErrInvalidName = errors.New("invalid file name")
)

// Store is a flat namespace of files.
type Store interface {
	Save(ctx context.Context, name string, data []byte, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	// Location describes where name lives, for logs and diagnostics.
	Location(name string) string
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return ErrInvalidName
	}
	return nil
}
