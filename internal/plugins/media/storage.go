package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrInvalidKey is returned for storage keys that would escape the root.
var ErrInvalidKey = errors.New("invalid storage key")

// FileStore keeps media files on the local filesystem, addressed by
// slash-separated storage keys relative to a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed and returns a store.
func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving uploads path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &FileStore{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *FileStore) Root() string {
	return s.root
}

// Path returns the absolute path for key. Keys that are absolute or climb
// out of the root with ".." are rejected.
func (s *FileStore) Path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if key == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, rel), nil
}

// Write stores data under key. The file is written to a temp file in the
// same directory and renamed into place, so readers never see a partial
// file.
func (s *FileStore) Write(key string, data []byte) error {
	full, err := s.Path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating media directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing media file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("setting media file mode: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		cleanup()
		return fmt.Errorf("moving media file into place: %w", err)
	}
	return nil
}

// Remove deletes the file stored under key. A file that is already gone
// counts as removed.
func (s *FileStore) Remove(key string) error {
	full, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a regular file is stored under key.
func (s *FileStore) Exists(key string) bool {
	full, err := s.Path(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// removeAll removes every key, returning the joined failures.
func (s *FileStore) removeAll(keys []string) error {
	var errs []error
	for _, k := range keys {
		if err := s.Remove(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
