package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"studentpics/internal/students"
)

// Local stores blobs as files in one directory.
type Local struct {
	dir string
}

// NewLocal creates dir if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Dir is the directory blobs are written to.
func (l *Local) Dir() string { return l.dir }

func (l *Local) path(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return filepath.Join(l.dir, name), nil
}

func (l *Local) Put(_ context.Context, name string, data []byte) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (l *Local) Delete(_ context.Context, name string) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, students.ErrBlobNotFound)
		}
		return err
	}
	return nil
}

func (l *Local) Open(_ context.Context, name string) (*Object, error) {
	p, err := l.path(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, students.ErrBlobNotFound)
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, students.ErrBlobNotFound)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", name, students.ErrBlobNotFound)
	}
	return &Object{ReadCloser: f, Size: info.Size(), ContentType: ContentType(name)}, nil
}
