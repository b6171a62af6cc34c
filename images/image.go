// Package images - Image file identification and dimension probing.
package images

import (
	"path/filepath"
	"strings"
)

// Size is the pixel dimension of an image.
type Size struct {
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	_, ok := FormatFromPath(path)
	return ok
}

// FormatFromPath maps a file extension to its image format.
//
// Arguments:
//   - path: A file name or path. The extension is matched case-insensitively.
//
// Returns:
//   - ImageFormat: The format.
//   - bool: False if the extension is not a supported image type.
func FormatFromPath(path string) (ImageFormat, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Extensions returns the supported image file extensions, lower case with the
// leading dot.
func Extensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".webp"}
}
