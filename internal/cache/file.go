package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mrz1836/dnawallet/internal/fileutil"
)

// ErrCorruptCache indicates the cache file is malformed JSON.
var ErrCorruptCache = errors.New("cache file is corrupted")

// FileStorage persists a BalanceCache as one JSON file.
type FileStorage struct {
	path string
}

// NewFileStorage creates a storage backed by path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the cache file path.
func (s *FileStorage) Path() string { return s.path }

// Save writes c atomically.
func (s *FileStorage) Save(c *BalanceCache) error {
	if err := fileutil.EnsureDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	c.mu.RLock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}
	if err := fileutil.WriteAtomic(s.path, data, fileutil.SecretFilePerm); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Load reads the cache, returning an empty one when the file does not exist.
// A corrupt file is moved aside and an empty cache is returned with
// ErrCorruptCache.
func (s *FileStorage) Load() (*BalanceCache, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		corruptPath := fmt.Sprintf("%s.corrupt.%d", s.path, time.Now().UTC().UnixNano())
		if renameErr := os.Rename(s.path, corruptPath); renameErr != nil {
			return New(), fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptCache, err, renameErr)
		}
		return New(), fmt.Errorf("%w: %w (moved to %s)", ErrCorruptCache, err, corruptPath)
	}
	if c.Entries == nil {
		c.Entries = make(map[string]Entry)
	}
	return c, nil
}
