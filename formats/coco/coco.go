// Package coco - COCO object detection JSON handler.
//
// All images of a directory share one JSON file. The handler caches the
// loaded directory and writes the whole file through on every change.
package coco

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/images"
)

// DefaultFile is the file name used when a directory has no COCO file yet.
const DefaultFile = "_annotations.coco.json"

// FileNames are the conventional COCO file names in lookup order.
var FileNames = []string{
	DefaultFile,
	"annotations.json",
	"instances.json",
	"coco.json",
}

// UnlabeledName is the category of shapes without a label.
const UnlabeledName = "unknown"

const (
	infoDescription = "Exported from Annotator"
	infoContributor = "Annotator"
	infoVersion     = "1.0"
)

// Handler reads and writes COCO datasets.
type Handler struct {
	format.Base

	mu    sync.Mutex
	cache format.DirectoryCache
	now   func() time.Time
}

var _ format.Format = (*Handler)(nil)

// New creates a COCO handler.
func New(opts format.Options) *Handler {
	return &Handler{Base: format.NewBase(format.NameCOCO, opts), now: time.Now}
}

// Name returns format.NameCOCO.
func (h *Handler) Name() format.Name { return format.NameCOCO }

// IsPerImage is false: one file holds the whole directory.
func (h *Handler) IsPerImage() bool { return false }

// FileExtension returns ".json".
func (h *Handler) FileExtension() string { return ".json" }

// SupportsPolygons is true; polygons are stored as segmentation.
func (h *Handler) SupportsPolygons() bool { return true }

// ClearCache forgets the loaded directory.
func (h *Handler) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache.Clear()
}

// AnnotationPath returns the COCO file of the image's directory, existing or
// to be created.
func (h *Handler) AnnotationPath(imagePath string) string {
	return datasetPath(filepath.Dir(imagePath))
}

func datasetPath(dir string) string {
	if path, ok := findFile(dir); ok {
		return path
	}
	return filepath.Join(dir, DefaultFile)
}

// findFile returns the first conventional file name in dir holding a JSON
// object.
func findFile(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, ok := readObject(path); ok {
			return path, true
		}
	}
	return "", false
}

func readObject(path string) (map[string]json.RawMessage, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// Detect reports whether dir holds a COCO file with images, annotations or
// categories.
func Detect(dir string) bool {
	for _, name := range FileNames {
		obj, ok := readObject(filepath.Join(dir, name))
		if !ok {
			continue
		}
		for _, key := range []string{"images", "annotations", "categories"} {
			if _, ok := obj[key]; ok {
				return true
			}
		}
	}
	return false
}

// ReadImage returns the cached shapes of one image, loading its directory
// first when needed.
func (h *Handler) ReadImage(imagePath string, width, height int) ([]*annotation.Shape, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	dir := filepath.Dir(imagePath)
	if err := h.ensureLoaded(dir); err != nil {
		return nil, err
	}
	return h.cache.Shapes(filepath.Base(imagePath)), nil
}

// WriteImage replaces the shapes of one image and rewrites the dataset file.
//
// The cache only takes the new shapes once the file is written.
func (h *Handler) WriteImage(imagePath string, shapes []*annotation.Shape, width, height int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	dir := filepath.Dir(imagePath)
	if err := h.ensureLoaded(dir); err != nil {
		return err
	}
	anns, sizes := h.cache.WithImage(filepath.Base(imagePath), shapes, images.Size{Width: width, Height: height})
	if err := h.save(dir, anns, sizes); err != nil {
		return err
	}
	h.cache.Replace(dir, anns, sizes)
	return nil
}

// HasAnnotation reports whether the image has at least one cached shape.
func (h *Handler) HasAnnotation(imagePath string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ensureLoaded(filepath.Dir(imagePath)); err != nil {
		return false
	}
	return h.cache.Count(filepath.Base(imagePath)) > 0
}

func (h *Handler) ensureLoaded(dir string) error {
	if h.cache.Loaded(dir) {
		return nil
	}
	_, err := h.load(dir)
	return err
}

// LoadDirectory parses the COCO file of dir and caches its content.
//
// Category names missing from the class table are added with their file ids.
//
// Returns:
//   - format.Annotations: Shapes of every image with at least one shape.
//   - error: Only if the file exists but cannot be read. A malformed file is
//     logged and yields no shapes.
func (h *Handler) LoadDirectory(dir string) (format.Annotations, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(dir)
}

func (h *Handler) load(dir string) (format.Annotations, error) {
	h.cache.Replace(dir, nil, nil)

	path, ok := findFile(dir)
	if !ok {
		h.Logger.Debug("no coco file", "dir", dir)
		return format.Annotations{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		h.Logger.Error("read coco file", "path", path, "error", err)
		return format.Annotations{}, errors.Wrap(err, "read coco file")
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		h.Logger.Error("parse coco file", "path", path, "error", err)
		return format.Annotations{}, nil
	}

	categories := make(map[int]string, len(ds.Categories))
	for _, c := range ds.Categories {
		categories[c.ID] = c.Name
		if c.Name != "" && !h.Classes().Has(c.Name) {
			h.Classes().Set(c.Name, c.ID)
		}
	}

	anns := format.Annotations{}
	sizes := format.Sizes{}
	byID := make(map[int]string, len(ds.Images))
	for _, img := range ds.Images {
		if img.FileName == "" {
			continue
		}
		byID[img.ID] = img.FileName
		sizes[img.FileName] = images.Size{Width: img.Width, Height: img.Height}
		anns[img.FileName] = []*annotation.Shape{}
	}

	total := 0
	for _, a := range ds.Annotations {
		name, ok := byID[a.ImageID]
		if !ok {
			continue
		}
		if !sizes[name].Valid() {
			continue
		}
		label, ok := categories[a.CategoryID]
		if !ok {
			label = strconv.Itoa(a.CategoryID)
		}
		shapes := decodeAnnotation(a, label)
		anns[name] = append(anns[name], shapes...)
		total += len(shapes)
	}

	h.cache.Replace(dir, anns, sizes)
	h.Logger.Info("loaded annotations", "path", path, "shapes", total)

	out := format.Annotations{}
	for name, shapes := range anns {
		if len(shapes) > 0 {
			out[name] = annotation.CloneShapes(shapes)
		}
	}
	return out, nil
}

// decodeAnnotation prefers segmentation polygons with at least 3 points and
// falls back to the bbox.
func decodeAnnotation(a Annotation, label string) []*annotation.Shape {
	var out []*annotation.Shape
	for _, seg := range a.Segmentation {
		if len(seg) < 6 {
			continue
		}
		out = append(out, annotation.NewPolygon(annotation.PairPoints(seg), label))
	}
	if len(out) > 0 {
		return out
	}
	if len(a.BBox) != 4 {
		return nil
	}
	x, y, w, h := a.BBox[0], a.BBox[1], a.BBox[2], a.BBox[3]
	return []*annotation.Shape{
		annotation.NewBox(annotation.Point{X: x, Y: y}, annotation.Point{X: x + w, Y: y + h}, label),
	}
}

// SaveDirectory writes anns to the COCO file of dir and caches them.
//
// Images are written in file name order with ids from 1. Images without an
// entry in sizes are skipped.
func (h *Handler) SaveDirectory(dir string, anns format.Annotations, sizes format.Sizes) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.save(dir, anns, sizes); err != nil {
		return err
	}
	h.cache.Replace(dir, anns, sizes)
	return nil
}

func (h *Handler) save(dir string, anns format.Annotations, sizes format.Sizes) error {
	path := datasetPath(dir)
	ds := h.encode(anns, sizes)

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode coco file")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		h.Logger.Error("write coco file", "path", path, "error", err)
		return errors.Wrap(err, "write coco file")
	}
	h.Logger.Info("saved annotations", "path", path, "annotations", len(ds.Annotations))
	return nil
}

// encode builds the dataset document. Labels missing from the class table get
// the next free id and a new category. Unlabeled shapes use UnlabeledName.
func (h *Handler) encode(anns format.Annotations, sizes format.Sizes) Dataset {
	now := h.now()
	ds := Dataset{
		Info: &Info{
			Description: infoDescription,
			Version:     infoVersion,
			Year:        now.Year(),
			Contributor: infoContributor,
			DateCreated: now.Format(time.RFC3339),
		},
		Licenses:    []json.RawMessage{},
		Images:      []Image{},
		Annotations: []Annotation{},
		Categories:  []Category{},
	}
	for _, c := range h.Classes().Classes() {
		ds.Categories = append(ds.Categories, Category{ID: c.ID, Name: c.Name})
	}

	names := make([]string, 0, len(anns))
	for name := range anns {
		names = append(names, name)
	}
	sort.Strings(names)

	imageID := 0
	for _, name := range names {
		size, ok := sizes[name]
		if !ok {
			h.Logger.Warn("skipping image without size", "image", name)
			continue
		}
		imageID++
		ds.Images = append(ds.Images, Image{ID: imageID, FileName: name, Width: size.Width, Height: size.Height})

		for _, s := range anns[name] {
			a, ok := encodeShape(s)
			if !ok {
				h.Logger.Warn("skipping degenerate shape", "image", name, "shape", s.String())
				continue
			}
			label := s.Label
			if label == "" {
				label = UnlabeledName
			}
			id, known := h.Classes().ID(label)
			if !known {
				id = h.Classes().Len()
				h.Classes().Set(label, id)
				ds.Categories = append(ds.Categories, Category{ID: id, Name: label})
			}
			a.ID = len(ds.Annotations) + 1
			a.ImageID = imageID
			a.CategoryID = id
			ds.Annotations = append(ds.Annotations, a)
		}
	}
	return ds
}

func encodeShape(s *annotation.Shape) (Annotation, bool) {
	switch s.Kind {
	case annotation.KindBox:
		if len(s.Points) < 2 {
			return Annotation{}, false
		}
		r := annotation.Bounds(s.Points[:2])
		return Annotation{
			BBox:         []float64{r.MinX, r.MinY, r.Width(), r.Height()},
			Area:         r.Area(),
			Segmentation: Segmentation{},
		}, true
	case annotation.KindPolygon:
		open := s.OpenPoints()
		if len(open) < 3 {
			return Annotation{}, false
		}
		r := annotation.Bounds(open)
		return Annotation{
			BBox:         []float64{r.MinX, r.MinY, r.Width(), r.Height()},
			Area:         annotation.PolygonArea(open),
			Segmentation: Segmentation{annotation.FlattenPoints(open)},
		}, true
	}
	return Annotation{}, false
}

// ClassesFromDirectory returns the categories of the COCO file in dir, or a
// copy of the current table when there is none.
func (h *Handler) ClassesFromDirectory(dir string) *annotation.ClassTable {
	path, ok := findFile(dir)
	if !ok {
		return h.Classes().Clone()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		h.Logger.Error("read coco categories", "path", path, "error", err)
		return h.Classes().Clone()
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		h.Logger.Error("parse coco categories", "path", path, "error", err)
		return h.Classes().Clone()
	}
	t := annotation.NewClassTable(nil)
	for _, c := range ds.Categories {
		if c.Name != "" {
			t.Set(c.Name, c.ID)
		}
	}
	if t.Len() == 0 {
		return h.Classes().Clone()
	}
	return t
}
