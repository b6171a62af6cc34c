package formats

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/formats/yolo"
	"github.com/nvr-ai/annotator/images"
	"github.com/nvr-ai/annotator/logging"
)

type pt = annotation.Point

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixedSize(w, h int) images.SizeProber {
	return images.ProberFunc(func(path string) (images.Size, error) {
		if _, err := os.Stat(path); err != nil {
			return images.Size{}, err
		}
		return images.Size{Width: w, Height: h}, nil
	})
}

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		t.Run(string(name), func(t *testing.T) {
			require.True(t, Valid(name))
			h, err := NewFormat(name, format.Options{})
			require.NoError(t, err)
			assert.Equal(t, name, h.Name())
			assert.Equal(t, h.IsPerImage(), IsPerImage(name))
			assert.Equal(t, h.SupportsPolygons(), SupportsPolygons(name))
			assert.NotEmpty(t, Description(name))
		})
	}

	assert.Equal(t, "Pascal VOC", DisplayName(format.NamePascalVOC))
	assert.Equal(t, "labelme", DisplayName("labelme"))
	assert.Empty(t, Description("labelme"))
	assert.False(t, Valid("labelme"))

	_, err := NewFormat("labelme", format.Options{})
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestNewFormat_SharesClassTable(t *testing.T) {
	classes := annotation.ClassTableFromNames([]string{"cat"})
	h, err := NewFormat(format.NameYOLO, format.Options{Classes: classes})
	require.NoError(t, err)
	assert.Same(t, classes, h.Classes())
}

func yoloPair(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "a.jpg"), "")
	writeFile(t, filepath.Join(dir, "a.txt"), "0 0.5 0.5 0.2 0.2\n")
}

func TestDetect_Precedence(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(t *testing.T, dir string)
		want  format.Name
		all   []format.Name
	}{
		{
			name:  "empty directory",
			setup: func(*testing.T, string) {},
			want:  format.NameYOLO,
		},
		{
			name:  "yolo pair",
			setup: yoloPair,
			want:  format.NameYOLO,
			all:   []format.Name{format.NameYOLO},
		},
		{
			name: "coco wins over yolo",
			setup: func(t *testing.T, dir string) {
				yoloPair(t, dir)
				writeFile(t, filepath.Join(dir, "_annotations.coco.json"), `{"images": [], "annotations": [], "categories": []}`)
			},
			want: format.NameCOCO,
			all:  []format.Name{format.NameCOCO, format.NameYOLO},
		},
		{
			name: "createml annotations.json",
			setup: func(t *testing.T, dir string) {
				writeFile(t, filepath.Join(dir, "annotations.json"), `[{"image": "a.jpg", "annotations": []}]`)
			},
			want: format.NameCreateML,
			all:  []format.Name{format.NameCreateML},
		},
		{
			name: "voc wins over yolo",
			setup: func(t *testing.T, dir string) {
				yoloPair(t, dir)
				writeFile(t, filepath.Join(dir, "a.xml"), "<annotation></annotation>")
			},
			want: format.NamePascalVOC,
			all:  []format.Name{format.NamePascalVOC, format.NameYOLO},
		},
		{
			name: "data.yaml only",
			setup: func(t *testing.T, dir string) {
				writeFile(t, filepath.Join(dir, "data.yaml"), "nc: 0\n")
			},
			want: format.NameYOLO,
			all:  []format.Name{format.NameYOLO},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			tc.setup(t, dir)
			assert.Equal(t, tc.want, Detect(dir, nil))
			assert.Equal(t, tc.all, DetectAll(dir))
		})
	}
}

func TestDetect_MissingDirectory(t *testing.T) {
	logger, rec := logging.NewRecorder()
	assert.Equal(t, format.NameYOLO, Detect(filepath.Join(t.TempDir(), "nope"), logger))
	assert.Equal(t, 1, rec.Count(slog.LevelWarn))
}

// TestConvert_YOLOToVOC checks polygons are counted when the target is
// box-only and that images without a probe-able size are reported.
func TestConvert_YOLOToVOC(t *testing.T) {
	src, dst := t.TempDir(), filepath.Join(t.TempDir(), "out")
	writeFile(t, filepath.Join(src, "data.yaml"), "names: ['cat', 'roof']\n")
	writeFile(t, filepath.Join(src, "a.jpg"), "")
	writeFile(t, filepath.Join(src, "a.txt"), "0 0.2 0.2 0.2 0.2\n1 0.1 0.1 0.5 0.1 0.3 0.5\n")
	writeFile(t, filepath.Join(src, "b.png"), "")
	writeFile(t, filepath.Join(src, "b.txt"), "0 0.5 0.5 0.1 0.1\n")

	report, err := Convert(src, dst, format.NameYOLO, format.NamePascalVOC, format.Options{Sizes: fixedSize(1000, 1000)})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Images)
	assert.Equal(t, 3, report.Shapes)
	assert.Equal(t, 1, report.Polygons)
	assert.Empty(t, report.Skipped)

	voc, err := NewFormat(format.NamePascalVOC, format.Options{})
	require.NoError(t, err)
	shapes, err := voc.ReadImage(filepath.Join(dst, "a.jpg"), 1000, 1000)
	require.NoError(t, err)
	require.Len(t, shapes, 2)
	assert.Equal(t, "cat", shapes[0].Label)
	assert.Equal(t, []pt{{X: 100, Y: 100}, {X: 300, Y: 300}}, shapes[0].Points)
	assert.Equal(t, "roof", shapes[1].Label)
	assert.Equal(t, annotation.KindBox, shapes[1].Kind)
}

func TestConvert_COCOToYOLO(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "a.jpg"), "")
	writeFile(t, filepath.Join(src, "_annotations.coco.json"), `{
  "images": [{"id": 1, "file_name": "a.jpg", "width": 100, "height": 100},
             {"id": 2, "file_name": "gone.jpg", "width": 100, "height": 100}],
  "annotations": [
    {"id": 1, "image_id": 1, "category_id": 5, "bbox": [10, 10, 20, 20]},
    {"id": 2, "image_id": 2, "category_id": 5, "bbox": [10, 10, 20, 20]}
  ],
  "categories": [{"id": 5, "name": "dog"}]
}`)

	report, err := Convert(src, dst, format.NameCOCO, format.NameYOLO, format.Options{Sizes: fixedSize(100, 100)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Images)
	assert.Equal(t, []string{"gone.jpg"}, report.Skipped)

	data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "5 0.2 0.2 0.2 0.2\n", string(data))

	ds, found, err := yolo.LoadDataset(dst)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]int{"dog": 5}, ds.Classes().Map())
}

func TestConvert_UnknownFormat(t *testing.T) {
	_, err := Convert(t.TempDir(), t.TempDir(), "labelme", format.NameYOLO, format.Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
