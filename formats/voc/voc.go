// Package voc - Pascal VOC XML handler.
//
// One XML file per image holds its boxes. The format has no polygons, so
// polygons are written as their bounding boxes.
package voc

import (
	"bytes"
	"encoding/xml"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/util"
)

// Extension is the annotation file extension.
const Extension = ".xml"

// UnlabeledName is written for shapes without a label.
const UnlabeledName = "unknown"

const (
	declaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	indent      = "    "
	database    = "Unknown"
	unspecified = "Unspecified"
	imageDepth  = 3
	rootElement = "annotation"
)

// Handler reads and writes Pascal VOC files.
type Handler struct {
	format.Base
}

var _ format.Format = (*Handler)(nil)

// New creates a Pascal VOC handler.
func New(opts format.Options) *Handler {
	return &Handler{Base: format.NewBase(format.NamePascalVOC, opts)}
}

// Name returns format.NamePascalVOC.
func (h *Handler) Name() format.Name { return format.NamePascalVOC }

// IsPerImage is true.
func (h *Handler) IsPerImage() bool { return true }

// FileExtension returns ".xml".
func (h *Handler) FileExtension() string { return Extension }

// SupportsPolygons is false.
func (h *Handler) SupportsPolygons() bool { return false }

// AnnotationPath swaps the image extension for .xml.
func (h *Handler) AnnotationPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + Extension
}

func readDocument(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return doc, errors.Wrapf(err, "parse %s", path)
	}
	return doc, nil
}

// ReadImage returns the boxes of one image.
//
// Coordinates are clamped into the image. Objects with an unparseable bndbox
// are logged and skipped.
//
// Arguments:
//   - imagePath: The image whose .xml file is read.
//   - width: The image width used for clamping.
//   - height: The image height used for clamping.
//
// Returns:
//   - []*annotation.Shape: Box shapes in file order.
//   - error: Only if the file exists but cannot be read.
func (h *Handler) ReadImage(imagePath string, width, height int) ([]*annotation.Shape, error) {
	path := h.AnnotationPath(imagePath)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		h.Logger.Debug("annotation file not found", "path", path)
		return nil, nil
	}
	if err != nil {
		h.Logger.Error("read annotation file", "path", path, "error", err)
		return nil, errors.Wrap(err, "read voc annotations")
	}

	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		h.Logger.Error("parse annotation file", "path", path, "error", err)
		return nil, nil
	}

	var shapes []*annotation.Shape
	for i, obj := range doc.Objects {
		if obj.BndBox == nil {
			continue
		}
		r, err := parseBndBox(*obj.BndBox)
		if err != nil {
			h.Logger.Warn("skipping object", "path", path, "object", i, "error", err)
			continue
		}
		if width > 0 && height > 0 {
			r = r.Clamp(float64(width), float64(height))
		}
		shapes = append(shapes, annotation.NewBox(
			annotation.Point{X: r.MinX, Y: r.MinY},
			annotation.Point{X: r.MaxX, Y: r.MaxY},
			strings.TrimSpace(obj.Name),
		))
	}
	h.Logger.Info("loaded annotations", "path", path, "shapes", len(shapes))
	return shapes, nil
}

// parseBndBox reads the four extrema in file order. The result is not
// normalised, so MinX may exceed MaxX for a malformed box.
func parseBndBox(b BndBox) (annotation.Rect, error) {
	values := make([]float64, 4)
	for i, s := range []string{b.XMin, b.YMin, b.XMax, b.YMax} {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return annotation.Rect{}, errors.Wrap(err, "bndbox")
		}
		values[i] = v
	}
	return annotation.Rect{MinX: values[0], MinY: values[1], MaxX: values[2], MaxY: values[3]}, nil
}

// WriteImage writes the boxes of one image.
//
// An empty shape list deletes the file. Polygons are written as their bounding
// boxes with one warning per call.
func (h *Handler) WriteImage(imagePath string, shapes []*annotation.Shape, width, height int) error {
	path := h.AnnotationPath(imagePath)

	if len(shapes) == 0 {
		err := os.Remove(path)
		if err == nil {
			h.Logger.Info("deleted empty annotation file", "path", path)
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		h.Logger.Error("delete annotation file", "path", path, "error", err)
		return errors.Wrap(err, "delete voc annotations")
	}

	boxes, converted := format.BoxOnly(shapes)
	if converted > 0 {
		h.Logger.Warn("polygons converted to bounding boxes", "path", path, "polygons", converted)
	}

	doc := h.document(imagePath, boxes, width, height)
	data, err := xml.MarshalIndent(doc, "", indent)
	if err != nil {
		return errors.Wrap(err, "encode voc annotations")
	}

	var buf bytes.Buffer
	buf.WriteString(declaration)
	buf.Write(data)
	buf.WriteByte('\n')
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		h.Logger.Error("write annotation file", "path", path, "error", err)
		return errors.Wrap(err, "write voc annotations")
	}
	h.Logger.Info("saved annotations", "path", path, "shapes", len(doc.Objects))
	return nil
}

func (h *Handler) document(imagePath string, boxes []*annotation.Shape, width, height int) Document {
	abs, err := filepath.Abs(imagePath)
	if err != nil {
		abs = imagePath
	}
	doc := Document{
		Folder:   filepath.Base(filepath.Dir(abs)),
		Filename: filepath.Base(imagePath),
		Path:     abs,
		Source:   Source{Database: database},
		Size:     Size{Width: width, Height: height, Depth: imageDepth},
	}
	for _, b := range boxes {
		if len(b.Points) < 2 {
			h.Logger.Warn("skipping degenerate shape", "image", imagePath, "shape", b.String())
			continue
		}
		label := b.Label
		if label == "" {
			label = UnlabeledName
		}
		r := annotation.Bounds(b.Points[:2])
		doc.Objects = append(doc.Objects, Object{
			Name: label,
			Pose: unspecified,
			BndBox: &BndBox{
				XMin: roundString(r.MinX),
				YMin: roundString(r.MinY),
				XMax: roundString(r.MaxX),
				YMax: roundString(r.MaxY),
			},
		})
	}
	return doc
}

func roundString(v float64) string {
	return strconv.Itoa(int(math.Round(v)))
}

// LoadDirectory reads every image in dir that has an .xml file.
func (h *Handler) LoadDirectory(dir string) (format.Annotations, error) {
	return format.LoadEach(h, h.Sizes, h.Logger, dir)
}

// SaveDirectory writes one .xml file per image in anns.
func (h *Handler) SaveDirectory(dir string, anns format.Annotations, sizes format.Sizes) error {
	return format.SaveEach(h, h.Logger, dir, anns, sizes)
}

// HasAnnotation reports whether the .xml file parses and has an object.
func (h *Handler) HasAnnotation(imagePath string) bool {
	doc, err := readDocument(h.AnnotationPath(imagePath))
	return err == nil && len(doc.Objects) > 0
}

// ClassesFromDirectory assigns ids to the object names of every .xml file in
// dir in first-seen order. Files are visited in name order. A directory
// without names yields a copy of the current table.
func (h *Handler) ClassesFromDirectory(dir string) *annotation.ClassTable {
	t := annotation.NewClassTable(nil)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return h.Classes().Clone()
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			continue
		}
		doc, err := readDocument(filepath.Join(dir, e.Name()))
		if err != nil {
			h.Logger.Debug("skipping unreadable file", "file", e.Name(), "error", err)
			continue
		}
		for _, obj := range doc.Objects {
			if name := strings.TrimSpace(obj.Name); name != "" {
				t.Add(name)
			}
		}
	}
	if t.Len() == 0 {
		return h.Classes().Clone()
	}
	return t
}

// Detect reports whether dir has an .xml file named after an image whose root
// element is <annotation>.
func Detect(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			continue
		}
		if _, ok := util.FindImage(dir, util.Stem(e.Name())); !ok {
			continue
		}
		if rootIsAnnotation(filepath.Join(dir, e.Name())) {
			return true
		}
	}
	return false
}

func rootIsAnnotation(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local == rootElement
		}
	}
}
