// Package format - Definitions shared by the annotation format handlers.
package format

import (
	"log/slog"
	"strconv"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/images"
	"github.com/nvr-ai/annotator/logging"
)

// Name is the unique identifier of an annotation format.
type Name string

const (
	// NameYOLO is the per-image normalised text format.
	NameYOLO Name = "yolo"
	// NameCOCO is the dataset-wide COCO JSON format.
	NameCOCO Name = "coco"
	// NamePascalVOC is the per-image Pascal VOC XML format.
	NamePascalVOC Name = "pascal_voc"
	// NameCreateML is the dataset-wide CreateML JSON format.
	NameCreateML Name = "createml"
)

// Annotations maps image file names to their shapes.
type Annotations map[string][]*annotation.Shape

// Sizes maps image file names to their pixel dimensions.
type Sizes map[string]images.Size

// Format reads and writes annotations in one on-disk format.
//
// Handlers never keep references to the shapes they are given or return; every
// shape crossing the interface is a copy.
type Format interface {
	// Name returns the format identifier.
	Name() Name
	// IsPerImage is true for one annotation file per image and false for one
	// file per directory.
	IsPerImage() bool
	// FileExtension returns the annotation file extension, including the dot.
	FileExtension() string
	// SupportsPolygons is false for box-only formats. Polygons written to such
	// a format are stored as their bounding box.
	SupportsPolygons() bool

	// Classes returns the class table in use.
	Classes() *annotation.ClassTable
	// SetClasses replaces the class table.
	SetClasses(classes *annotation.ClassTable)

	// ReadImage returns the shapes of one image. A missing or malformed file
	// yields no shapes; only an unreadable existing file is an error.
	ReadImage(imagePath string, width, height int) ([]*annotation.Shape, error)
	// WriteImage stores the shapes of one image.
	WriteImage(imagePath string, shapes []*annotation.Shape, width, height int) error
	// LoadDirectory returns the shapes of every annotated image in dir.
	LoadDirectory(dir string) (Annotations, error)
	// SaveDirectory stores the shapes of every image in anns. Images without an
	// entry in sizes are skipped.
	SaveDirectory(dir string, anns Annotations, sizes Sizes) error

	// AnnotationPath returns the file holding the annotations of imagePath.
	AnnotationPath(imagePath string) string
	// HasAnnotation reports whether imagePath has at least one shape.
	HasAnnotation(imagePath string) bool
	// ClassesFromDirectory extracts the class table declared in dir.
	ClassesFromDirectory(dir string) *annotation.ClassTable
}

// ClassSaver is implemented by formats that keep class declarations in a
// separate file.
type ClassSaver interface {
	SaveClasses(dir string, classes *annotation.ClassTable) error
}

// CacheClearer is implemented by dataset formats that cache a loaded directory.
type CacheClearer interface {
	ClearCache()
}

// Options are the arguments for creating a format handler.
type Options struct {
	// Classes is the initial class table. Nil starts empty.
	Classes *annotation.ClassTable
	// Logger receives parse warnings and I/O errors. Nil discards.
	Logger *slog.Logger
	// Sizes probes image dimensions for directory loads. Nil decodes headers.
	Sizes images.SizeProber
}

// Base holds the state every handler shares.
type Base struct {
	classes *annotation.ClassTable
	// Logger is tagged with the format name.
	Logger *slog.Logger
	// Sizes probes image dimensions.
	Sizes images.SizeProber
}

// NewBase creates the shared handler state.
//
// Arguments:
//   - name: The format name added to every log record.
//   - opts: The handler options.
//
// Returns:
//   - Base: The state to embed in a handler.
func NewBase(name Name, opts Options) Base {
	classes := opts.Classes
	if classes == nil {
		classes = annotation.NewClassTable(nil)
	}
	sizes := opts.Sizes
	if sizes == nil {
		sizes = images.HeaderProber
	}
	return Base{
		classes: classes,
		Logger:  logging.OrDiscard(opts.Logger).With("format", string(name)),
		Sizes:   sizes,
	}
}

// Classes returns the class table.
func (b *Base) Classes() *annotation.ClassTable { return b.classes }

// SetClasses replaces the class table. Nil installs an empty table.
func (b *Base) SetClasses(classes *annotation.ClassTable) {
	if classes == nil {
		classes = annotation.NewClassTable(nil)
	}
	b.classes = classes
}

// ClassName returns the name of id, or its decimal form when unknown.
func (b *Base) ClassName(id int) string {
	if name, ok := b.classes.Name(id); ok {
		return name
	}
	return strconv.Itoa(id)
}

// ClassID returns the id of label, or -1 when the label is empty or unknown.
func (b *Base) ClassID(label string) int {
	if label == "" {
		return -1
	}
	id, _ := b.classes.ID(label)
	return id
}

// BoxOnly converts polygons to their bounding boxes for box-only formats.
//
// Returns:
//   - []*annotation.Shape: Copies of shapes with every polygon replaced by a box.
//   - int: The number of polygons converted.
func BoxOnly(shapes []*annotation.Shape) ([]*annotation.Shape, int) {
	out := make([]*annotation.Shape, 0, len(shapes))
	converted := 0
	for _, s := range shapes {
		if s.Kind == annotation.KindPolygon {
			r := s.Bounds()
			topLeft, bottomRight := r.Corners()
			box := annotation.NewBox(topLeft, bottomRight, s.Label)
			box.Color = s.Color
			out = append(out, box)
			converted++
			continue
		}
		out = append(out, s.Clone())
	}
	return out, converted
}
