// Package formats - registry of the annotation format handlers.
package formats

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/formats/coco"
	"github.com/nvr-ai/annotator/formats/createml"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/formats/voc"
	"github.com/nvr-ai/annotator/formats/yolo"
)

// ErrUnknownFormat is returned for a format name that is not registered.
var ErrUnknownFormat = errors.New("unknown annotation format")

// info describes one registered format.
type info struct {
	display     string
	description string
	perImage    bool
	polygons    bool
}

var registry = map[format.Name]info{
	format.NameYOLO: {
		display:     "YOLO",
		description: "One .txt file per image with normalized coordinates",
		perImage:    true,
		polygons:    true,
	},
	format.NameCOCO: {
		display:     "COCO",
		description: "Single JSON file for entire dataset (Microsoft COCO format)",
		perImage:    false,
		polygons:    true,
	},
	format.NamePascalVOC: {
		display:     "Pascal VOC",
		description: "One .xml file per image (ImageNet/VOC format)",
		perImage:    true,
		polygons:    false,
	},
	format.NameCreateML: {
		display:     "CreateML",
		description: "Single JSON file for entire dataset (Apple CreateML format)",
		perImage:    false,
		polygons:    false,
	},
}

// Names returns the registered format names in menu order.
func Names() []format.Name {
	return []format.Name{format.NameYOLO, format.NameCOCO, format.NamePascalVOC, format.NameCreateML}
}

// Valid reports whether name is registered.
func Valid(name format.Name) bool {
	_, ok := registry[name]
	return ok
}

// DisplayName returns the human readable name, or name itself when unknown.
func DisplayName(name format.Name) string {
	if i, ok := registry[name]; ok {
		return i.display
	}
	return string(name)
}

// Description returns a one line description, or "" when unknown.
func Description(name format.Name) string {
	return registry[name].description
}

// IsPerImage reports whether name stores one annotation file per image.
func IsPerImage(name format.Name) bool {
	return registry[name].perImage
}

// SupportsPolygons reports whether name can store polygons.
func SupportsPolygons(name format.Name) bool {
	return registry[name].polygons
}

// NewFormat creates a handler for the named format.
//
// Arguments:
//   - name: One of Names().
//   - opts: The class table, logger and size prober handed to the handler.
//
// Returns:
//   - format.Format: A fresh handler.
//   - error: ErrUnknownFormat if name is not registered.
//
// @example
// h, err := NewFormat(format.NameCOCO, format.Options{Logger: logger})
//
//	if err != nil {
//	    return err
//	}
//
// shapes, err := h.ReadImage("/data/a.jpg", 640, 480)
func NewFormat(name format.Name, opts format.Options) (format.Format, error) {
	switch name {
	case format.NameYOLO:
		return yolo.New(opts), nil
	case format.NameCOCO:
		return coco.New(opts), nil
	case format.NamePascalVOC:
		return voc.New(opts), nil
	case format.NameCreateML:
		return createml.New(opts), nil
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", name)
	}
}
