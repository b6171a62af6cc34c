package images

import (
	"image"
	// Register the decoders DecodeSize can read headers of.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// SizeProber reports the pixel dimensions of an image file.
type SizeProber interface {
	Size(path string) (Size, error)
}

// ProberFunc adapts a function to SizeProber.
type ProberFunc func(path string) (Size, error)

// Size calls f(path).
func (f ProberFunc) Size(path string) (Size, error) { return f(path) }

// HeaderProber probes sizes by decoding image headers on every call.
var HeaderProber SizeProber = ProberFunc(DecodeSize)

// DecodeSize reads the dimensions of an image from its header.
//
// Only the header is decoded, so this is cheap even for large images.
//
// Arguments:
//   - path: The image file path.
//
// Returns:
//   - Size: The image dimensions.
//   - error: If the file cannot be opened or its format is not recognised.
//
// @example
// size, err := DecodeSize("frames/0001.jpg")
func DecodeSize(path string) (Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return Size{}, errors.Wrap(err, "open image")
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Size{}, errors.Wrapf(err, "decode image header %s", path)
	}
	return Size{Width: cfg.Width, Height: cfg.Height}, nil
}
