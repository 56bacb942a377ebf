// Package cache maps a digest of raw image bytes to a previously validated journey.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"slowlooking/pkg/fileutil"
	"slowlooking/pkg/model"
	"slowlooking/pkg/schema"
)

// Cacher defines the journey caching interface.
type Cacher interface {
	Get(ctx context.Context, fingerprint string) (*model.Journey, bool)
	Put(ctx context.Context, fingerprint string, j *model.Journey) error
}

// Fingerprint returns the hex SHA-256 digest of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileCache implements Cacher with one JSON file per fingerprint. Entries never expire.
type FileCache struct {
	dir string
}

// NewFileCache creates the cache directory if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Path returns the entry file for a fingerprint.
func (c *FileCache) Path(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".json")
}

// Get returns the cached journey. Unreadable or invalid entries count as a miss.
func (c *FileCache) Get(ctx context.Context, fingerprint string) (*model.Journey, bool) {
	if !validFingerprint(fingerprint) {
		return nil, false
	}
	data, err := os.ReadFile(c.Path(fingerprint))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Cache read failed, treating as miss", "fingerprint", fingerprint, "error", err)
		}
		return nil, false
	}
	j, err := schema.Parse(data)
	if err != nil {
		slog.Warn("Cache entry failed validation, regenerating", "fingerprint", fingerprint, "error", err)
		return nil, false
	}
	return j, true
}

// Put stores j under fingerprint, replacing any previous entry.
func (c *FileCache) Put(ctx context.Context, fingerprint string, j *model.Journey) error {
	if !validFingerprint(fingerprint) {
		return fmt.Errorf("invalid fingerprint %q", fingerprint)
	}
	if j == nil {
		return errors.New("journey is nil")
	}
	return fileutil.WriteJSONAtomic(c.Path(fingerprint), j)
}

func validFingerprint(fp string) bool {
	if len(fp) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(fp)
	return err == nil
}
