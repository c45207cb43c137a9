package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Well-known keys used by the rotation engine.
const (
	// KeyState holds the last-known rotation state for restart recovery.
	KeyState = "state"

	// KeyFavorites holds the favorites set.
	KeyFavorites = "favorites"

	// KeyHistory holds the capped rotation history.
	KeyHistory = "history"

	// KeyConfig holds a mirror of the active configuration map.
	KeyConfig = "config"

	// CachePrefix prefixes timestamped verbatim pool snapshots.
	CachePrefix = "cache/pool-"
)

// Store is the persistence capability consumed by the engine.
//
// Load returns the stored bytes and true, or (nil, false, nil) when the
// key has never been saved. Save replaces the value atomically with
// respect to concurrent Loads of the same key.
type Store interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, data []byte) error
}

// Lister is implemented by stores that can enumerate keys by prefix.
// The file store implements it; it is used to surface cached pool
// snapshots in status output.
type Lister interface {
	List(prefix string) ([]string, error)
}

// FileStore persists each key as a file under a root directory.
// Keys may contain '/' to group entries into subdirectories.
type FileStore struct {
	root string
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{root: dir}, nil
}

// path maps a key to its backing file. Path traversal in keys is refused
// by cleaning and re-checking containment.
func (s *FileStore) path(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid store key %q", key)
	}
	return filepath.Join(s.root, cleaned+".json"), nil
}

// Load reads the bytes stored under key.
func (s *FileStore) Load(key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p) //nolint:gosec // Path is rooted and traversal-checked
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load key %q: %w", key, err)
	}
	return data, true, nil
}

// Save writes the bytes under key. The write goes to a temporary file in
// the same directory followed by a rename, so readers never observe a
// torn value.
func (s *FileStore) Save(key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
		return fmt.Errorf("failed to create directory for key %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".store-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for key %q: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for key %q: %w", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to commit key %q: %w", key, err)
	}
	return nil
}

// List returns the keys under the given prefix, sorted.
func (s *FileStore) List(prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list store keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
