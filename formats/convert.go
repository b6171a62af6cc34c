package formats

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/images"
	"github.com/nvr-ai/annotator/logging"
)

// ConvertReport summarises a conversion.
type ConvertReport struct {
	// Images is the number of annotated images written.
	Images int
	// Shapes is the number of shapes written.
	Shapes int
	// Polygons is the number of polygons stored as boxes by a box-only target.
	Polygons int
	// Skipped lists images whose size could not be probed.
	Skipped []string
}

// Convert copies the annotations of srcDir in one format to dstDir in another.
//
// Classes declared in srcDir are carried over and labels missing from them are
// added in first-seen order. Image sizes are probed from the images in srcDir
// with opts.Sizes. Images that cannot be probed are reported and skipped.
//
// Arguments:
//   - srcDir: The annotated image directory.
//   - dstDir: The output directory. It is created if needed and may equal
//     srcDir.
//   - from: The format of srcDir.
//   - to: The output format.
//   - opts: Logger and size prober. opts.Classes seeds the class table.
//
// Returns:
//   - ConvertReport: What was written.
//   - error: For an unknown format, an unreadable source or a failed write.
//
// @example
// report, err := Convert("/data/yolo", "/data/voc", format.NameYOLO, format.NamePascalVOC, format.Options{})
func Convert(srcDir, dstDir string, from, to format.Name, opts format.Options) (ConvertReport, error) {
	var report ConvertReport
	logger := logging.OrDiscard(opts.Logger)
	prober := opts.Sizes
	if prober == nil {
		prober = images.HeaderProber
	}

	src, err := NewFormat(from, opts)
	if err != nil {
		return report, err
	}
	classes := src.ClassesFromDirectory(srcDir)
	src.SetClasses(classes)

	anns, err := src.LoadDirectory(srcDir)
	if err != nil {
		return report, errors.Wrapf(err, "load %s annotations", from)
	}

	names := make([]string, 0, len(anns))
	for name := range anns {
		names = append(names, name)
	}
	sort.Strings(names)

	out := format.Annotations{}
	sizes := format.Sizes{}
	for _, name := range names {
		shapes := anns[name]
		if len(shapes) == 0 {
			continue
		}
		size, err := prober.Size(filepath.Join(srcDir, name))
		if err != nil || !size.Valid() {
			logger.Warn("skipping image without size", "image", name, "error", err)
			report.Skipped = append(report.Skipped, name)
			continue
		}
		for _, s := range shapes {
			if s.Label != "" && !classes.Has(s.Label) {
				classes.Add(s.Label)
			}
			if s.Kind == annotation.KindPolygon && !SupportsPolygons(to) {
				report.Polygons++
			}
		}
		out[name] = shapes
		sizes[name] = size
		report.Images++
		report.Shapes += len(shapes)
	}

	dst, err := NewFormat(to, format.Options{Classes: classes, Logger: opts.Logger, Sizes: prober})
	if err != nil {
		return report, err
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return report, errors.Wrap(err, "create output directory")
	}
	if err := dst.SaveDirectory(dstDir, out, sizes); err != nil {
		return report, errors.Wrapf(err, "save %s annotations", to)
	}
	if saver, ok := dst.(format.ClassSaver); ok {
		if err := saver.SaveClasses(dstDir, dst.Classes()); err != nil {
			return report, errors.Wrap(err, "save classes")
		}
	}

	logger.Info("converted annotations",
		"from", string(from), "to", string(to),
		"images", report.Images, "shapes", report.Shapes, "skipped", len(report.Skipped))
	return report, nil
}
