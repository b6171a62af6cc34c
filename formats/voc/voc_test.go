package voc

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/images"
	"github.com/nvr-ai/annotator/logging"
)

type pt = annotation.Point

func newHandler(t *testing.T) (*Handler, *logging.Recorder) {
	t.Helper()
	logger, rec := logging.NewRecorder()
	sizes := images.ProberFunc(func(string) (images.Size, error) {
		return images.Size{Width: 640, Height: 480}, nil
	})
	return New(format.Options{Logger: logger, Sizes: sizes}), rec
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCapabilities(t *testing.T) {
	h, _ := newHandler(t)
	assert.Equal(t, format.NamePascalVOC, h.Name())
	assert.True(t, h.IsPerImage())
	assert.False(t, h.SupportsPolygons())
	assert.Equal(t, ".xml", h.FileExtension())
	assert.Equal(t, "/data/a.xml", h.AnnotationPath("/data/a.jpeg"))
}

func TestWriteImage_Document(t *testing.T) {
	h, _ := newHandler(t)
	dir := t.TempDir()
	img := filepath.Join(dir, "street.jpg")

	shapes := []*annotation.Shape{
		annotation.NewBox(pt{X: 200.4, Y: 220.6}, pt{X: 100.5, Y: 110}, "car"),
		annotation.NewBox(pt{X: 0, Y: 0}, pt{X: 10, Y: 10}, ""),
	}
	require.NoError(t, h.WriteImage(img, shapes, 640, 480))

	content := readFile(t, h.AnnotationPath(img))
	assert.True(t, strings.HasPrefix(content, `<?xml version="1.0" encoding="UTF-8"?>`+"\n<annotation>\n"))
	for _, want := range []string{
		"    <folder>" + filepath.Base(dir) + "</folder>",
		"    <filename>street.jpg</filename>",
		"        <database>Unknown</database>",
		"        <width>640</width>",
		"        <depth>3</depth>",
		"    <segmented>0</segmented>",
		"        <name>car</name>",
		"        <pose>Unspecified</pose>",
		"        <truncated>0</truncated>",
		"            <xmin>101</xmin>",
		"            <ymin>110</ymin>",
		"            <xmax>200</xmax>",
		"            <ymax>221</ymax>",
		"        <name>unknown</name>",
	} {
		assert.Contains(t, content, want)
	}
}

func TestRoundTrip(t *testing.T) {
	h, _ := newHandler(t)
	img := filepath.Join(t.TempDir(), "a.png")

	require.NoError(t, h.WriteImage(img, []*annotation.Shape{annotation.NewBox(pt{X: 100, Y: 100}, pt{X: 300, Y: 300}, "cat")}, 640, 480))
	shapes, err := h.ReadImage(img, 640, 480)
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, annotation.KindBox, shapes[0].Kind)
	assert.Equal(t, "cat", shapes[0].Label)
	assert.Equal(t, []pt{{X: 100, Y: 100}, {X: 300, Y: 300}}, shapes[0].Points)
}

// TestWriteImage_PolygonBecomesBox checks the lossy conversion is logged once
// per call.
func TestWriteImage_PolygonBecomesBox(t *testing.T) {
	h, rec := newHandler(t)
	img := filepath.Join(t.TempDir(), "a.jpg")

	shapes := []*annotation.Shape{
		annotation.NewPolygon([]pt{{X: 10, Y: 20}, {X: 50, Y: 10}, {X: 40, Y: 60}}, "roof"),
		annotation.NewPolygon([]pt{{X: 1, Y: 1}, {X: 5, Y: 1}, {X: 5, Y: 5}}, "roof"),
	}
	require.NoError(t, h.WriteImage(img, shapes, 640, 480))
	assert.Equal(t, 1, rec.Count(slog.LevelWarn))

	read, err := h.ReadImage(img, 640, 480)
	require.NoError(t, err)
	require.Len(t, read, 2)
	assert.Equal(t, annotation.KindBox, read[0].Kind)
	assert.Equal(t, []pt{{X: 10, Y: 10}, {X: 50, Y: 60}}, read[0].Points)
	assert.Equal(t, annotation.KindPolygon, shapes[0].Kind, "input shapes are not modified")
}

func TestReadImage_ClampsAndSkips(t *testing.T) {
	h, rec := newHandler(t)
	img := filepath.Join(t.TempDir(), "a.jpg")
	writeFile(t, h.AnnotationPath(img), `<annotation>
  <object><name>cat</name><bndbox><xmin>-5</xmin><ymin>10.5</ymin><xmax>120</xmax><ymax>90</ymax></bndbox></object>
  <object><name>dog</name><bndbox><xmin>a</xmin><ymin>1</ymin><xmax>2</xmax><ymax>3</ymax></bndbox></object>
  <object><name>nobox</name></object>
  <object><name> bird </name><bndbox><xmin>1</xmin><ymin>2</ymin><xmax>3</xmax><ymax>4</ymax></bndbox></object>
</annotation>`)

	shapes, err := h.ReadImage(img, 100, 80)
	require.NoError(t, err)
	require.Len(t, shapes, 2)
	assert.Equal(t, []pt{{X: 0, Y: 10.5}, {X: 100, Y: 80}}, shapes[0].Points)
	assert.Equal(t, "bird", shapes[1].Label)
	assert.Equal(t, 1, rec.Count(slog.LevelWarn))
}

func TestReadImage_MissingAndMalformed(t *testing.T) {
	h, rec := newHandler(t)
	dir := t.TempDir()

	shapes, err := h.ReadImage(filepath.Join(dir, "none.jpg"), 10, 10)
	assert.NoError(t, err)
	assert.Empty(t, shapes)

	img := filepath.Join(dir, "bad.jpg")
	writeFile(t, h.AnnotationPath(img), "<annotation><object>")
	shapes, err = h.ReadImage(img, 10, 10)
	assert.NoError(t, err)
	assert.Empty(t, shapes)
	assert.Equal(t, 1, rec.Count(slog.LevelError))
}

func TestWriteImage_EmptyDeletesFile(t *testing.T) {
	h, _ := newHandler(t)
	img := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, h.WriteImage(img, []*annotation.Shape{annotation.NewBox(pt{X: 0, Y: 0}, pt{X: 1, Y: 1}, "a")}, 10, 10))
	require.FileExists(t, h.AnnotationPath(img))

	require.NoError(t, h.WriteImage(img, nil, 10, 10))
	assert.NoFileExists(t, h.AnnotationPath(img))
	assert.False(t, h.HasAnnotation(img))
}

func TestHasAnnotation(t *testing.T) {
	h, _ := newHandler(t)
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.jpg")
	writeFile(t, h.AnnotationPath(empty), "<annotation><filename>empty.jpg</filename></annotation>")
	assert.False(t, h.HasAnnotation(empty))

	one := filepath.Join(dir, "one.jpg")
	writeFile(t, h.AnnotationPath(one), "<annotation><object><name>a</name></object></annotation>")
	assert.True(t, h.HasAnnotation(one))

	other := filepath.Join(dir, "other.jpg")
	writeFile(t, h.AnnotationPath(other), "<config><object/></config>")
	assert.False(t, h.HasAnnotation(other))
}

func TestClassesFromDirectory(t *testing.T) {
	h, _ := newHandler(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.xml"), "<annotation><object><name>dog</name></object><object><name>cat</name></object></annotation>")
	writeFile(t, filepath.Join(dir, "b.xml"), "<annotation><object><name>cat</name></object><object><name>bird</name></object></annotation>")
	writeFile(t, filepath.Join(dir, "c.xml"), "not xml")

	assert.Equal(t, map[string]int{"dog": 0, "cat": 1, "bird": 2}, h.ClassesFromDirectory(dir).Map())

	h.SetClasses(annotation.ClassTableFromNames([]string{"x"}))
	assert.Equal(t, []string{"x"}, h.ClassesFromDirectory(t.TempDir()).Names())
}

func TestLoadAndSaveDirectory(t *testing.T) {
	h, _ := newHandler(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"), "")
	writeFile(t, filepath.Join(dir, "b.jpg"), "")

	anns := format.Annotations{
		"a.jpg": {annotation.NewBox(pt{X: 1, Y: 2}, pt{X: 3, Y: 4}, "cat")},
		"b.jpg": {annotation.NewBox(pt{X: 5, Y: 6}, pt{X: 7, Y: 8}, "dog")},
	}
	sizes := format.Sizes{"a.jpg": {Width: 640, Height: 480}, "b.jpg": {Width: 640, Height: 480}}
	require.NoError(t, h.SaveDirectory(dir, anns, sizes))

	loaded, err := h.LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, []pt{{X: 5, Y: 6}, {X: 7, Y: 8}}, loaded["b.jpg"][0].Points)
}

func TestDetect(t *testing.T) {
	testCases := []struct {
		name  string
		files map[string]string
		want  bool
	}{
		{"xml next to image", map[string]string{"a.jpg": "", "a.xml": "<?xml version=\"1.0\"?>\n<annotation></annotation>"}, true},
		{"xml without image", map[string]string{"a.xml": "<annotation></annotation>"}, false},
		{"other root", map[string]string{"a.png": "", "a.xml": "<svg></svg>"}, false},
		{"broken xml", map[string]string{"a.png": "", "a.xml": "<<<"}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tc.files {
				writeFile(t, filepath.Join(dir, name), content)
			}
			assert.Equal(t, tc.want, Detect(dir))
		})
	}
}
