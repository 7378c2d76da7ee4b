package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var _ Provider = (*FS)(nil)

// ErrTooLarge is returned by Save when the input exceeds the limit.
var ErrTooLarge = errors.New("storage: object too large")

// ErrInvalidName is returned for names that are not plain file names.
var ErrInvalidName = errors.New("storage: invalid object name")

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

// FS implements Provider backed by a local directory.
type FS struct {
	root string // absolute path to upload directory
}

// NewFS creates an FS rooted at dir, creating the directory if needed.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute upload directory.
func (f *FS) Root() string { return f.root }

// safePath accepts only plain names directly under root.
func (f *FS) safePath(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return abs, nil
}

// Save writes atomically: tmp file → fsync → rename.
func (f *FS) Save(ext string, r io.Reader, limit int64) (Object, error) {
	ext = strings.ToLower(ext)
	if ext != "" && !extPattern.MatchString(ext) {
		return Object{}, fmt.Errorf("%w: extension %q", ErrInvalidName, ext)
	}
	name := uuid.NewString() + ext
	abs, err := f.safePath(name)
	if err != nil {
		return Object{}, err
	}

	tmp, err := os.CreateTemp(f.root, ".upload-tmp-*")
	if err != nil {
		return Object{}, fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, io.LimitReader(r, limit+1))
	if err != nil {
		return Object{}, fmt.Errorf("storage: write temp: %w", err)
	}
	if written > limit {
		return Object{}, ErrTooLarge
	}
	if err := tmp.Sync(); err != nil {
		return Object{}, fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return Object{}, fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return Object{Name: name, Size: written}, nil
}

// Open returns the stored object.
func (f *FS) Open(name string) (io.ReadSeekCloser, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", name, err)
	}
	return file, nil
}

// Delete removes a stored object.
func (f *FS) Delete(name string) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}
