package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lumohealth/tabsync/internal/logger"
)

// FileStore keeps one JSON file per key under a root directory. It is
// the default backend: file writes from one process surface as
// filesystem events in every other process watching the same directory,
// which is how cross-context change notification works.
//
// Writes go through a temp file and rename so watchers never observe
// partially written content.
type FileStore struct {
	dir string

	mu     sync.Mutex
	recent map[string]time.Time // keys this process wrote recently
}

// NewFileStore creates (if needed) the root directory and returns a
// store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %q: %w", dir, err)
	}
	return &FileStore{
		dir:    dir,
		recent: make(map[string]time.Time),
	}, nil
}

// Dir returns the root directory of the store.
func (f *FileStore) Dir() string {
	return f.dir
}

// path maps a key to its backing file. Keys are flat identifiers;
// path separators are rejected at write time.
func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get implements Store.
func (f *FileStore) Get(key string) (string, bool) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("store: read failed for %q: %v", key, err)
		}
		return "", false
	}
	return string(data), true
}

// Set implements Store.
func (f *FileStore) Set(key, value string) bool {
	if strings.ContainsAny(key, "/\\") {
		logger.Warn("store: rejecting key with path separator: %q", key)
		return false
	}

	tmp, err := os.CreateTemp(f.dir, "."+key+"-*.tmp")
	if err != nil {
		logger.Warn("store: write failed for %q: %v", key, err)
		return false
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		logger.Warn("store: write failed for %q: %v", key, err)
		return false
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		logger.Warn("store: write failed for %q: %v", key, err)
		return false
	}

	f.markWrite(key)
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		os.Remove(tmpName)
		logger.Warn("store: write failed for %q: %v", key, err)
		return false
	}
	return true
}

// Remove implements Store. Removing an absent key succeeds.
func (f *FileStore) Remove(key string) bool {
	f.markWrite(key)
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		logger.Warn("store: remove failed for %q: %v", key, err)
		return false
	}
	return true
}

// markWrite records that this process touched key, so the watcher can
// tell its own filesystem events apart from other contexts' writes.
func (f *FileStore) markWrite(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent[key] = time.Now()
}

// WroteRecently reports whether this process wrote key within window.
// The watcher uses it to suppress self-notification: the environment
// contract is that a write is observed in all other contexts, not the
// writing one.
func (f *FileStore) WroteRecently(key string, window time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.recent[key]
	if !ok {
		return false
	}
	return time.Since(t) <= window
}
