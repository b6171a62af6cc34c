// Package createml - Apple CreateML JSON handler.
//
// All images of a directory share one JSON array of entries. Boxes are stored
// as centre, width and height in pixels. Polygons are written as their
// bounding boxes.
package createml

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/images"
)

// DefaultFile is the file name used when a directory has no CreateML file yet.
const DefaultFile = "_annotations.createml.json"

// FileNames are the conventional CreateML file names in lookup order.
var FileNames = []string{
	DefaultFile,
	"annotations.createml.json",
	"createml.json",
	"annotations.json",
}

// UnlabeledName is written for shapes without a label.
const UnlabeledName = "unknown"

// Entry is the annotation list of one image.
type Entry struct {
	Image       string `json:"image"`
	Annotations []Item `json:"annotations"`
}

// Item is one labelled box.
type Item struct {
	Label       string       `json:"label"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Coordinates is a box given by its centre and extent.
type Coordinates struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Handler reads and writes CreateML datasets.
type Handler struct {
	format.Base

	mu    sync.Mutex
	cache format.DirectoryCache
}

var _ format.Format = (*Handler)(nil)

// New creates a CreateML handler.
func New(opts format.Options) *Handler {
	return &Handler{Base: format.NewBase(format.NameCreateML, opts)}
}

// Name returns format.NameCreateML.
func (h *Handler) Name() format.Name { return format.NameCreateML }

// IsPerImage is false.
func (h *Handler) IsPerImage() bool { return false }

// FileExtension returns ".json".
func (h *Handler) FileExtension() string { return ".json" }

// SupportsPolygons is false.
func (h *Handler) SupportsPolygons() bool { return false }

// ClearCache forgets the loaded directory.
func (h *Handler) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache.Clear()
}

// AnnotationPath returns the CreateML file of the image's directory, existing
// or to be created.
func (h *Handler) AnnotationPath(imagePath string) string {
	return datasetPath(filepath.Dir(imagePath))
}

func datasetPath(dir string) string {
	if path, ok := findFile(dir); ok {
		return path
	}
	return filepath.Join(dir, DefaultFile)
}

// findFile returns the first conventional file in dir whose content is a
// CreateML array. The file name alone is never trusted because
// annotations.json is also used by COCO exports.
func findFile(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if isCreateML(path) {
			return path, true
		}
	}
	return "", false
}

// isCreateML reports whether path holds a JSON array that is empty or starts
// with an object carrying an "image" key.
func isCreateML(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		return false
	}
	if len(entries) == 0 {
		return true
	}
	var first map[string]json.RawMessage
	if err := json.Unmarshal(entries[0], &first); err != nil {
		return false
	}
	_, ok := first["image"]
	return ok
}

// Detect reports whether dir holds a CreateML file.
func Detect(dir string) bool {
	_, ok := findFile(dir)
	return ok
}

// ReadImage returns the cached shapes of one image, loading its directory
// first when needed.
func (h *Handler) ReadImage(imagePath string, width, height int) ([]*annotation.Shape, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ensureLoaded(filepath.Dir(imagePath)); err != nil {
		return nil, err
	}
	return h.cache.Shapes(filepath.Base(imagePath)), nil
}

// WriteImage replaces the shapes of one image and rewrites the dataset file.
func (h *Handler) WriteImage(imagePath string, shapes []*annotation.Shape, width, height int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	dir := filepath.Dir(imagePath)
	if err := h.ensureLoaded(dir); err != nil {
		return err
	}
	anns, sizes := h.cache.WithImage(filepath.Base(imagePath), shapes, images.Size{Width: width, Height: height})
	if err := h.save(dir, anns); err != nil {
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

// LoadDirectory parses the CreateML file of dir and caches its content.
//
// Labels missing from the class table are added in sorted order.
func (h *Handler) LoadDirectory(dir string) (format.Annotations, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(dir)
}

func (h *Handler) load(dir string) (format.Annotations, error) {
	h.cache.Replace(dir, nil, nil)

	path, ok := findFile(dir)
	if !ok {
		h.Logger.Debug("no createml file", "dir", dir)
		return format.Annotations{}, nil
	}
	entries, err := h.readEntries(path)
	if err != nil {
		return format.Annotations{}, err
	}

	anns := format.Annotations{}
	labels := map[string]bool{}
	total := 0
	for _, e := range entries {
		shapes := make([]*annotation.Shape, 0, len(e.Annotations))
		for _, item := range e.Annotations {
			if item.Coordinates == nil {
				continue
			}
			shapes = append(shapes, decodeItem(item))
			if item.Label != "" {
				labels[item.Label] = true
			}
		}
		anns[e.Image] = append(anns[e.Image], shapes...)
		total += len(shapes)
	}

	for _, label := range sortedKeys(labels) {
		h.Classes().Add(label)
	}

	h.cache.Replace(dir, anns, nil)
	h.Logger.Info("loaded annotations", "path", path, "shapes", total)

	out := format.Annotations{}
	for name, shapes := range anns {
		if len(shapes) > 0 {
			out[name] = annotation.CloneShapes(shapes)
		}
	}
	return out, nil
}

// readEntries parses the dataset array. Entries that are not objects or have
// no image name are logged and skipped. A malformed file yields no entries.
func (h *Handler) readEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		h.Logger.Error("read createml file", "path", path, "error", err)
		return nil, errors.Wrap(err, "read createml file")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		h.Logger.Error("parse createml file", "path", path, "error", err)
		return nil, nil
	}
	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		var e Entry
		if err := json.Unmarshal(r, &e); err != nil || e.Image == "" {
			h.Logger.Warn("skipping entry", "path", path, "entry", i, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeItem(item Item) *annotation.Shape {
	c := item.Coordinates
	return annotation.NewBox(
		annotation.Point{X: c.X - c.Width/2, Y: c.Y - c.Height/2},
		annotation.Point{X: c.X + c.Width/2, Y: c.Y + c.Height/2},
		item.Label,
	)
}

// SaveDirectory writes anns to the CreateML file of dir and caches them.
//
// The format stores no image sizes, so sizes only feed the cache. Images
// without shapes get no entry.
func (h *Handler) SaveDirectory(dir string, anns format.Annotations, sizes format.Sizes) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.save(dir, anns); err != nil {
		return err
	}
	h.cache.Replace(dir, anns, sizes)
	return nil
}

func (h *Handler) save(dir string, anns format.Annotations) error {
	path := datasetPath(dir)
	entries, converted := encode(anns)
	if converted > 0 {
		h.Logger.Warn("polygons converted to bounding boxes", "path", path, "polygons", converted)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode createml file")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		h.Logger.Error("write createml file", "path", path, "error", err)
		return errors.Wrap(err, "write createml file")
	}
	h.Logger.Info("saved annotations", "path", path, "images", len(entries))
	return nil
}

// encode builds the entries in image name order.
//
// Returns:
//   - []Entry: One entry per image with at least one box.
//   - int: The number of polygons converted to boxes.
func encode(anns format.Annotations) ([]Entry, int) {
	entries := []Entry{}
	converted := 0
	for _, name := range sortedKeys(anns) {
		boxes, n := format.BoxOnly(anns[name])
		converted += n

		e := Entry{Image: name}
		for _, b := range boxes {
			if len(b.Points) < 2 {
				continue
			}
			e.Annotations = append(e.Annotations, encodeBox(b))
		}
		if len(e.Annotations) > 0 {
			entries = append(entries, e)
		}
	}
	return entries, converted
}

func encodeBox(b *annotation.Shape) Item {
	r := annotation.Bounds(b.Points[:2])
	c := r.Center()
	label := b.Label
	if label == "" {
		label = UnlabeledName
	}
	return Item{
		Label: label,
		Coordinates: &Coordinates{
			X:      round2(c.X),
			Y:      round2(c.Y),
			Width:  round2(r.Width()),
			Height: round2(r.Height()),
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ClassesFromDirectory returns the labels of the CreateML file in dir with ids
// in sorted label order, or a copy of the current table when there are none.
func (h *Handler) ClassesFromDirectory(dir string) *annotation.ClassTable {
	path, ok := findFile(dir)
	if !ok {
		return h.Classes().Clone()
	}
	entries, err := h.readEntries(path)
	if err != nil {
		return h.Classes().Clone()
	}
	labels := map[string]bool{}
	for _, e := range entries {
		for _, item := range e.Annotations {
			if item.Label != "" {
				labels[item.Label] = true
			}
		}
	}
	if len(labels) == 0 {
		return h.Classes().Clone()
	}
	return annotation.ClassTableFromNames(sortedKeys(labels))
}
