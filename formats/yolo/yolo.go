// Package yolo - YOLO text annotations: one normalised .txt file per image.
package yolo

import (
	"bufio"
	"bytes"
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
const Extension = ".txt"

// Handler reads and writes YOLO annotations.
//
// Box lines are "id cx cy w h" and polygon lines are "id x1 y1 ... xn yn",
// all coordinates normalised to the image size. Unlabeled shapes and labels
// missing from the class table are written with id -1.
type Handler struct {
	format.Base
}

// New creates a YOLO handler.
func New(opts format.Options) *Handler {
	return &Handler{Base: format.NewBase(format.NameYOLO, opts)}
}

// Name returns format.NameYOLO.
func (h *Handler) Name() format.Name { return format.NameYOLO }

// IsPerImage returns true.
func (h *Handler) IsPerImage() bool { return true }

// FileExtension returns ".txt".
func (h *Handler) FileExtension() string { return Extension }

// SupportsPolygons returns true.
func (h *Handler) SupportsPolygons() bool { return true }

// AnnotationPath returns the image path with a .txt extension.
func (h *Handler) AnnotationPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + Extension
}

// ReadImage parses the annotation file of imagePath.
//
// Malformed lines are logged and skipped.
//
// Arguments:
//   - imagePath: The image whose .txt file is read.
//   - width: The image width used to de-normalise coordinates.
//   - height: The image height used to de-normalise coordinates.
//
// Returns:
//   - []*annotation.Shape: The shapes in file order.
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
		return nil, errors.Wrap(err, "read yolo annotations")
	}
	if width <= 0 || height <= 0 {
		h.Logger.Warn("invalid image size", "path", path, "width", width, "height", height)
		return nil, nil
	}

	var shapes []*annotation.Shape
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		shape, err := h.parseLine(line, width, height)
		if err != nil {
			h.Logger.Warn("skipping malformed line", "path", path, "line", i+1, "error", err)
			continue
		}
		shapes = append(shapes, shape)
	}
	h.Logger.Info("loaded annotations", "path", path, "shapes", len(shapes))
	return shapes, nil
}

func (h *Handler) parseLine(line string, width, height int) (*annotation.Shape, error) {
	fields := strings.Fields(line)
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, errors.Wrap(err, "class id")
	}
	coords, err := parseFloats(fields[1:])
	if err != nil {
		return nil, err
	}
	label := h.ClassName(id)

	switch {
	case len(coords) == 4:
		box := annotation.YOLOBox{CenterX: coords[0], CenterY: coords[1], Width: coords[2], Height: coords[3]}
		return annotation.FromYOLOBox(box, width, height, label), nil
	case len(coords) >= 6 && len(coords)%2 == 0:
		return annotation.FromYOLOPolygon(coords, width, height, label), nil
	default:
		return nil, errors.Errorf("unexpected token count %d", len(fields))
	}
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "coordinate %d", i+1)
		}
		out[i] = v
	}
	return out, nil
}

// WriteImage writes shapes to the annotation file of imagePath.
//
// An empty shape list deletes the file.
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
		return errors.Wrap(err, "delete yolo annotations")
	}
	if width <= 0 || height <= 0 {
		err := errors.Wrapf(annotation.ErrInvalidSize, "write %s", path)
		h.Logger.Error("write annotation file", "path", path, "error", err)
		return err
	}

	var buf bytes.Buffer
	written := 0
	for _, s := range shapes {
		line, ok := h.formatShape(s, width, height)
		if !ok {
			h.Logger.Warn("skipping degenerate shape", "path", path, "shape", s.String())
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		written++
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		h.Logger.Error("write annotation file", "path", path, "error", err)
		return errors.Wrap(err, "write yolo annotations")
	}
	h.Logger.Info("saved annotations", "path", path, "shapes", written)
	return nil
}

func (h *Handler) formatShape(s *annotation.Shape, width, height int) (string, bool) {
	parts := []string{strconv.Itoa(h.ClassID(s.Label))}
	switch s.Kind {
	case annotation.KindBox:
		b, err := s.ToYOLOBox(width, height)
		if err != nil {
			return "", false
		}
		parts = append(parts, formatFloat(b.CenterX), formatFloat(b.CenterY), formatFloat(b.Width), formatFloat(b.Height))
	case annotation.KindPolygon:
		points, err := s.ToYOLOPolygon(width, height)
		if err != nil || len(points) < 3 {
			return "", false
		}
		for _, p := range points {
			parts = append(parts, formatFloat(p.X), formatFloat(p.Y))
		}
	default:
		return "", false
	}
	return strings.Join(parts, " "), true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// LoadDirectory reads every image in dir that has an annotation file.
//
// Image sizes come from the injected size prober. Images whose size cannot be
// probed are logged and skipped.
func (h *Handler) LoadDirectory(dir string) (format.Annotations, error) {
	return format.LoadEach(h, h.Sizes, h.Logger, dir)
}

// SaveDirectory writes one annotation file per image in anns.
//
// Every image is attempted; the returned error reports the first failure.
func (h *Handler) SaveDirectory(dir string, anns format.Annotations, sizes format.Sizes) error {
	return format.SaveEach(h, h.Logger, dir, anns, sizes)
}

// HasAnnotation reports whether the annotation file has at least one line
// starting with an integer id and a numeric coordinate.
func (h *Handler) HasAnnotation(imagePath string) bool {
	f, err := os.Open(h.AnnotationPath(imagePath))
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if looksLikeAnnotation(scanner.Text()) {
			return true
		}
	}
	return false
}

func looksLikeAnnotation(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return false
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return false
	}
	_, err := strconv.ParseFloat(fields[1], 64)
	return err == nil
}

// ClassesFromDirectory reads the class list from data.yaml. A missing or
// invalid file yields a copy of the current table.
func (h *Handler) ClassesFromDirectory(dir string) *annotation.ClassTable {
	ds, found, err := LoadDataset(dir)
	if err != nil {
		h.Logger.Error("load classes", "dir", dir, "error", err)
		return h.Classes().Clone()
	}
	if !found {
		return h.Classes().Clone()
	}
	return ds.Classes()
}

// SaveClasses rewrites data.yaml with classes, keeping its split paths.
func (h *Handler) SaveClasses(dir string, classes *annotation.ClassTable) error {
	ds, _, err := LoadDataset(dir)
	if err != nil {
		h.Logger.Warn("replacing unreadable data.yaml", "dir", dir, "error", err)
	}
	ds.SetClasses(classes)
	if err := SaveDataset(dir, ds); err != nil {
		h.Logger.Error("save classes", "dir", dir, "error", err)
		return err
	}
	h.Logger.Info("saved classes", "dir", dir, "classes", ds.NC)
	return nil
}

// Detect reports whether dir looks like a YOLO directory: it has a data.yaml,
// or a .txt file next to an image whose first non-empty line starts with an
// integer id followed by four numbers.
func Detect(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, DatasetFile)); err == nil {
		return true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Extension {
			continue
		}
		if _, ok := util.FindImage(dir, util.Stem(e.Name())); !ok {
			continue
		}
		if firstLineIsYOLO(filepath.Join(dir, e.Name())) {
			return true
		}
	}
	return false
}

func firstLineIsYOLO(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 5 {
			return false
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			return false
		}
		_, err := parseFloats(fields[1:5])
		return err == nil
	}
	return false
}
