package images

import (
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// DefaultCacheSize is the number of image sizes a SizeCache keeps by default.
const DefaultCacheSize = 4096

type cachedSize struct {
	size    Size
	modTime time.Time
}

// SizeCache is a SizeProber that remembers the sizes of recently probed images.
//
// Entries are keyed by path and dropped when the file's modification time
// changes. It is safe for concurrent use.
type SizeCache struct {
	probe SizeProber
	cache *lru.Cache[string, cachedSize]
}

// NewSizeCache creates a cache in front of probe.
//
// Arguments:
//   - capacity: The maximum number of entries. Values below 1 use DefaultCacheSize.
//   - probe: The prober used on a miss. Nil uses HeaderProber.
//
// Returns:
//   - *SizeCache: The cache.
//   - error: If the LRU cannot be created.
func NewSizeCache(capacity int, probe SizeProber) (*SizeCache, error) {
	if capacity < 1 {
		capacity = DefaultCacheSize
	}
	if probe == nil {
		probe = HeaderProber
	}
	c, err := lru.New[string, cachedSize](capacity)
	if err != nil {
		return nil, errors.Wrap(err, "create size cache")
	}
	return &SizeCache{probe: probe, cache: c}, nil
}

// Size returns the cached size of path, probing it on a miss or when the file
// changed since it was cached.
func (c *SizeCache) Size(path string) (Size, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.cache.Remove(path)
		return Size{}, errors.Wrap(err, "stat image")
	}
	if e, ok := c.cache.Get(path); ok && e.modTime.Equal(info.ModTime()) {
		return e.size, nil
	}

	size, err := c.probe.Size(path)
	if err != nil {
		return Size{}, err
	}
	c.cache.Add(path, cachedSize{size: size, modTime: info.ModTime()})
	return size, nil
}

// Invalidate drops the entry for path.
func (c *SizeCache) Invalidate(path string) {
	c.cache.Remove(path)
}

// Len returns the number of cached entries.
func (c *SizeCache) Len() int { return c.cache.Len() }

// Purge drops every entry.
func (c *SizeCache) Purge() { c.cache.Purge() }
