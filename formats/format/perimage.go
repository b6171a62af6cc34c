package format

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/images"
	"github.com/nvr-ai/annotator/util"
)

// ImageReadWriter is the per-image half of a handler.
type ImageReadWriter interface {
	ReadImage(imagePath string, width, height int) ([]*annotation.Shape, error)
	WriteImage(imagePath string, shapes []*annotation.Shape, width, height int) error
	AnnotationPath(imagePath string) string
}

// LoadEach reads every image in dir that has an annotation file next to it.
//
// Image sizes come from sizes. Images that cannot be probed or read are logged
// and skipped, and images without shapes are left out of the result.
//
// Arguments:
//   - rw: The per-image handler.
//   - sizes: The image size prober.
//   - logger: Receives skip warnings.
//   - dir: The directory to load.
//
// Returns:
//   - Annotations: Shapes keyed by image file name.
//   - error: Only if dir exists but cannot be listed.
func LoadEach(rw ImageReadWriter, sizes images.SizeProber, logger *slog.Logger, dir string) (Annotations, error) {
	out := Annotations{}
	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return out, nil
		}
		return out, err
	}
	for _, f := range files {
		if _, err := os.Stat(rw.AnnotationPath(f.Path)); err != nil {
			continue
		}
		size, err := sizes.Size(f.Path)
		if err != nil {
			logger.Warn("cannot probe image size", "path", f.Path, "error", err)
			continue
		}
		shapes, err := rw.ReadImage(f.Path, size.Width, size.Height)
		if err != nil {
			continue
		}
		if len(shapes) > 0 {
			out[f.Name] = shapes
		}
	}
	return out, nil
}

// SaveEach writes every image of anns in name order.
//
// Every image is attempted. Images without a size are logged and skipped. The
// returned error wraps the first failure.
func SaveEach(rw ImageReadWriter, logger *slog.Logger, dir string, anns Annotations, sizes Sizes) error {
	names := make([]string, 0, len(anns))
	for name := range anns {
		names = append(names, name)
	}
	sort.Strings(names)

	var first error
	failed := 0
	for _, name := range names {
		size, ok := sizes[name]
		if !ok {
			logger.Warn("skipping image without size", "image", name)
			continue
		}
		if err := rw.WriteImage(filepath.Join(dir, name), anns[name], size.Width, size.Height); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	if first != nil {
		return errors.Wrapf(first, "%d of %d images failed", failed, len(names))
	}
	return nil
}
