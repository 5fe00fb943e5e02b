package install

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kattouf/mise/internal/platform"
)

// DefaultCacheMaxAge is the default maximum age for cached remote versions.
const DefaultCacheMaxAge = 24 * time.Hour

// VersionCache holds the remote versions last listed for a tool.
type VersionCache struct {
	Tool      string    `json:"tool"`
	Versions  []string  `json:"versions"`
	CheckedAt time.Time `json:"checked_at"`
}

func cachePath(dir, tool string) string {
	return filepath.Join(dir, "remote-versions", toolDir(tool)+".json")
}

// LoadCache reads the cached remote versions for tool.
// Returns nil, nil if nothing has been cached yet.
func LoadCache(dir, tool string) (*VersionCache, error) {
	data, err := os.ReadFile(cachePath(dir, tool))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading version cache: %w", err)
	}

	var cache VersionCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing version cache: %w", err)
	}
	return &cache, nil
}

// SaveCache writes the remote version cache for cache.Tool.
func SaveCache(dir string, cache *VersionCache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling version cache: %w", err)
	}
	if err := platform.AtomicWrite(cachePath(dir, cache.Tool), data, 0o644); err != nil {
		return fmt.Errorf("writing version cache: %w", err)
	}
	return nil
}

// IsCacheStale returns true if the cache is nil or older than maxAge.
func IsCacheStale(cache *VersionCache, maxAge time.Duration) bool {
	if cache == nil {
		return true
	}
	return time.Since(cache.CheckedAt) > maxAge
}
