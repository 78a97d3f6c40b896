package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
	tmpMark  = ".partial-"
)

// ErrInvalidName is returned for names that are empty or escape the root.
var ErrInvalidName = errors.New("storage: invalid file name")

// LocalStorage keeps rendered exports on disk below a single root directory.
// Writes go through a temp file and rename so readers never observe a
// partially written export.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = "./exports"
	}
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

// Save writes data to name and returns the slash-separated relative path.
func (s *LocalStorage) Save(name string, data []byte) (string, error) {
	target, err := s.locate(name)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, tmpMark+"*")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	staged := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(staged, filePerm)
	}
	if werr == nil {
		werr = os.Rename(staged, target)
	}
	if werr != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("write %s: %w", name, werr)
	}
	return filepath.ToSlash(name), nil
}

// Emit stores data under name.
func (s *LocalStorage) Emit(name string, data []byte) error {
	_, err := s.Save(name, data)
	return err
}

func (s *LocalStorage) Open(name string) (*os.File, error) {
	target, err := s.locate(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Delete removes name and prunes its parent directory when it becomes empty.
// Deleting a missing file is not an error.
func (s *LocalStorage) Delete(name string) error {
	target, err := s.locate(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	s.prune(filepath.Dir(target))
	return nil
}

// CleanupOlderThan deletes files last modified before now-ttl and returns
// their relative paths in lexical order. Abandoned temp files are swept too.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	var removed []string
	dirs := map[string]struct{}{}

	walkErr := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		dirs[filepath.Dir(p)] = struct{}{}
		if strings.HasPrefix(d.Name(), tmpMark) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		removed = append(removed, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return removed, fmt.Errorf("sweep %s: %w", s.root, walkErr)
	}
	for dir := range dirs {
		s.prune(dir)
	}
	sort.Strings(removed)
	return removed, nil
}

// Path resolves name to its location on disk. Invalid names resolve to "".
func (s *LocalStorage) Path(name string) string {
	target, err := s.locate(name)
	if err != nil {
		return ""
	}
	return target
}

func (s *LocalStorage) locate(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}

// prune removes dir if it is an empty directory strictly below the root.
func (s *LocalStorage) prune(dir string) {
	if filepath.Clean(dir) == s.root {
		return
	}
	_ = os.Remove(dir)
}
