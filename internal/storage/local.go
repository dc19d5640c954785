package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalStore keeps files in a single directory.
type LocalStore struct {
	dir string
}

// NewLocalStore uses dir as is; call EnsureDir first to create it.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Dir() string {
	return s.dir
}

// Path returns the on-disk path of name.
func (s *LocalStore) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

func (s *LocalStore) Save(_ context.Context, name string, data []byte, _ string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", s.dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

func (s *LocalStore) Location(name string) string {
	return filepath.Join(s.dir, name)
}

// EnsureDir creates dir, falling back to /tmp/app_<name> and then ./<name>
// when it cannot be created (read-only serverless file systems). It returns
// the directory actually in use.
func EnsureDir(dir, name string) (string, error) {
	candidates := []string{dir, filepath.Join(os.TempDir(), "app_"+name), name}
	var lastErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if err := os.MkdirAll(candidate, 0o755); err != nil {
			slog.Warn("Could not create directory, trying fallback.", "dir", candidate, "error", err)
			lastErr = err
			continue
		}
		if candidate != dir {
			slog.Info("Using fallback directory.", "requested", dir, "dir", candidate)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("failed to create %s directory: %w", name, lastErr)
}

// Writable reports whether a file can be created in dir.
func Writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_, werr := f.WriteString("test")
	f.Close()
	os.Remove(name)
	return werr == nil
}
