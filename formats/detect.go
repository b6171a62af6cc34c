package formats

import (
	"log/slog"
	"os"

	"github.com/nvr-ai/annotator/formats/coco"
	"github.com/nvr-ai/annotator/formats/createml"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/formats/voc"
	"github.com/nvr-ai/annotator/formats/yolo"
	"github.com/nvr-ai/annotator/logging"
)

// Default is the format used for directories with no recognisable
// annotations.
const Default = format.NameYOLO

type detector struct {
	name   format.Name
	detect func(dir string) bool
}

// detectors in precedence order. Dataset-wide JSON files are a stronger
// signal than per-image files.
var detectors = []detector{
	{format.NameCOCO, coco.Detect},
	{format.NameCreateML, createml.Detect},
	{format.NamePascalVOC, voc.Detect},
	{format.NameYOLO, yolo.Detect},
}

// Detect returns the annotation format used in dir.
//
// The first match in the order COCO, CreateML, Pascal VOC, YOLO wins. A
// missing directory or one without annotations yields Default.
//
// Arguments:
//   - dir: The image directory.
//   - logger: Receives the outcome. Nil discards.
//
// Returns:
//   - format.Name: The detected format.
func Detect(dir string, logger *slog.Logger) format.Name {
	logger = logging.OrDiscard(logger)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		logger.Warn("directory not found, using default format", "dir", dir, "format", string(Default))
		return Default
	}
	for _, d := range detectors {
		if d.detect(dir) {
			logger.Info("detected annotation format", "dir", dir, "format", string(d.name))
			return d.name
		}
	}
	logger.Info("no annotation format detected, using default", "dir", dir, "format", string(Default))
	return Default
}

// DetectAll returns every format with annotations in dir, in precedence
// order. It is empty for a directory without annotations.
func DetectAll(dir string) []format.Name {
	var out []format.Name
	for _, d := range detectors {
		if d.detect(dir) {
			out = append(out, d.name)
		}
	}
	return out
}
