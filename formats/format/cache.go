package format

import (
	"path/filepath"
	"sync"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/images"
)

// DirectoryCache holds the annotations of the one directory a dataset format
// has loaded.
//
// It is safe for concurrent use. Shapes are copied on the way in and out.
type DirectoryCache struct {
	mu     sync.Mutex
	dir    string
	loaded bool
	shapes Annotations
	sizes  Sizes
}

// Loaded reports whether dir is the cached directory.
func (c *DirectoryCache) Loaded(dir string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded && c.dir == filepath.Clean(dir)
}

// Replace installs the content of dir.
func (c *DirectoryCache) Replace(dir string, anns Annotations, sizes Sizes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir = filepath.Clean(dir)
	c.loaded = true
	c.shapes = make(Annotations, len(anns))
	for name, shapes := range anns {
		c.shapes[name] = annotation.CloneShapes(shapes)
	}
	c.sizes = make(Sizes, len(sizes))
	for name, size := range sizes {
		c.sizes[name] = size
	}
}

// Shapes returns a copy of the shapes cached for an image file name.
func (c *DirectoryCache) Shapes(name string) []*annotation.Shape {
	c.mu.Lock()
	defer c.mu.Unlock()
	return annotation.CloneShapes(c.shapes[name])
}

// Count returns the number of shapes cached for an image file name.
func (c *DirectoryCache) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.shapes[name])
}

// Snapshot returns copies of the cached annotations and sizes.
func (c *DirectoryCache) Snapshot() (Annotations, Sizes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	anns := make(Annotations, len(c.shapes))
	for name, shapes := range c.shapes {
		anns[name] = annotation.CloneShapes(shapes)
	}
	sizes := make(Sizes, len(c.sizes))
	for name, size := range c.sizes {
		sizes[name] = size
	}
	return anns, sizes
}

// Clear forgets the cached directory.
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir = ""
	c.loaded = false
	c.shapes = nil
	c.sizes = nil
}

// WithImage returns a copy of the cache content with one image replaced.
func (c *DirectoryCache) WithImage(name string, shapes []*annotation.Shape, size images.Size) (Annotations, Sizes) {
	anns, sizes := c.Snapshot()
	anns[name] = annotation.CloneShapes(shapes)
	sizes[name] = size
	return anns, sizes
}
