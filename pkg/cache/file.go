package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileCache stores entries as files under a base directory, one file per
// key, with the expiry recorded in a small JSON envelope. Safe for
// concurrent readers; writers go through an atomic rename.
type FileCache struct {
	dir string
}

type fileEnvelope struct {
	ExpiresAt time.Time `json:"expires_at"`
	Data      []byte    `json:"data"`
}

// NewFileCache creates (if needed) the cache directory and returns the
// backend.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Corrupt entry, treat as a miss and drop it.
		_ = os.Remove(c.path(key))
		return nil, false, nil
	}
	if time.Now().After(env.ExpiresAt) {
		_ = os.Remove(c.path(key))
		return nil, false, nil
	}
	return env.Data, true, nil
}

func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	raw, err := json.Marshal(fileEnvelope{ExpiresAt: time.Now().Add(ttl), Data: data})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path(key))
}

func (c *FileCache) Delete(_ context.Context, key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *FileCache) Close() error { return nil }

// Clear removes every entry under the cache directory.
func (c *FileCache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// path maps a key to a filename. Keys contain colons, which are not
// portable across filesystems.
func (c *FileCache) path(key string) string {
	name := strings.ReplaceAll(key, ":", "_")
	return filepath.Join(c.dir, name)
}
