// Package util - Directory helpers shared by the format handlers.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvr-ai/annotator/images"
	"github.com/pkg/errors"
)

// ImageFile is an image found in a directory.
type ImageFile struct {
	// Path is the full path to the image file.
	Path string
	// Name is the base name of the image file.
	Name string
	// Format is derived from the file extension.
	Format images.ImageFormat
}

// LoadDirectoryImageFiles lists the image files directly inside dir.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The images sorted by name.
// - error: Error if the directory cannot be read.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := images.FormatFromPath(entry.Name())
		if !ok {
			continue
		}
		files = append(files, ImageFile{
			Path:   filepath.Join(dir, entry.Name()),
			Name:   entry.Name(),
			Format: format,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// ListImageFiles returns the sorted base names of the images in dir. A missing
// or unreadable directory yields no names.
func ListImageFiles(dir string) []string {
	files, err := LoadDirectoryImageFiles(dir)
	if err != nil {
		return nil
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

// FindImage returns the path of the image in dir whose base name without
// extension is stem.
func FindImage(dir, stem string) (string, bool) {
	for _, ext := range images.Extensions() {
		for _, candidate := range []string{stem + ext, stem + strings.ToUpper(ext)} {
			p := filepath.Join(dir, candidate)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, true
			}
		}
	}
	return "", false
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
