package images

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
	// FormatGIF is the GIF image format.
	FormatGIF ImageFormat = "gif"
)

var extensions = map[string]ImageFormat{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".bmp":  FormatBMP,
	".gif":  FormatGIF,
	".webp": FormatWebP,
}
