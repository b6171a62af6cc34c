package detect

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/logging"
)

const (
	// DefaultConfidenceThreshold is the minimum score a detection needs.
	DefaultConfidenceThreshold = 0.25
	// DefaultNMSThreshold is the IoU above which overlapping boxes are suppressed.
	DefaultNMSThreshold = 0.45
)

// Detector produces shapes for an image.
type Detector interface {
	// Detect returns the shapes found in the image at imagePath, in pixel
	// coordinates.
	Detect(ctx context.Context, imagePath string) ([]*annotation.Shape, error)
}

// Backend runs a model on an image and returns its raw detections.
type Backend interface {
	Infer(ctx context.Context, imagePath string) ([]Result, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, imagePath string) ([]Result, error)

// Infer calls f.
func (f BackendFunc) Infer(ctx context.Context, imagePath string) ([]Result, error) {
	return f(ctx, imagePath)
}

// Config holds the post-processing parameters of a ResultDetector.
type Config struct {
	ConfidenceThreshold float32  `yaml:"confidenceThreshold"`
	NMSThreshold        float32  `yaml:"iouThreshold"`
	RelevantClasses     []string `yaml:"relevantClasses"`
	ClassAware          bool     `yaml:"classAware"`
	// Labels names the backend class indices. Nil uses COCOLabels.
	Labels Labels `yaml:"-"`
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		NMSThreshold:        DefaultNMSThreshold,
		Labels:              COCOLabels,
	}
}

// ResultDetector turns the raw output of a Backend into labelled shapes.
//
// Detections below the confidence threshold or outside the relevant classes
// are dropped, the rest go through greedy NMS and become boxes, or polygons
// when the backend supplies an outline.
type ResultDetector struct {
	backend  Backend
	config   Config
	relevant map[string]bool
	logger   *slog.Logger
}

// NewResultDetector creates a detector around backend.
//
// Arguments:
//   - backend: The model runner.
//   - config: Post-processing parameters. Zero thresholds use the defaults.
//   - logger: Receives a summary per image. Nil discards.
//
// Returns:
//   - *ResultDetector: The detector.
//
// @example
// d := NewResultDetector(backend, DefaultConfig(), logger)
// shapes, err := d.Detect(ctx, "/data/img1.jpg")
func NewResultDetector(backend Backend, config Config, logger *slog.Logger) *ResultDetector {
	if config.ConfidenceThreshold <= 0 {
		config.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if config.NMSThreshold <= 0 {
		config.NMSThreshold = DefaultNMSThreshold
	}
	if config.Labels == nil {
		config.Labels = COCOLabels
	}

	var relevant map[string]bool
	if len(config.RelevantClasses) > 0 {
		relevant = make(map[string]bool, len(config.RelevantClasses))
		for _, name := range config.RelevantClasses {
			relevant[name] = true
		}
	}

	return &ResultDetector{
		backend:  backend,
		config:   config,
		relevant: relevant,
		logger:   logging.OrDiscard(logger).With("component", "detector"),
	}
}

// Config returns the effective configuration.
func (d *ResultDetector) Config() Config { return d.config }

// Detect implements Detector.
func (d *ResultDetector) Detect(ctx context.Context, imagePath string) ([]*annotation.Shape, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := d.backend.Infer(ctx, imagePath)
	if err != nil {
		return nil, errors.Wrapf(err, "detect %s", imagePath)
	}

	kept := d.Filter(raw)
	shapes := make([]*annotation.Shape, 0, len(kept))
	for _, r := range kept {
		shapes = append(shapes, d.toShape(r))
	}

	d.logger.Info("detected", "image", imagePath, "raw", len(raw), "shapes", len(shapes))
	return shapes, nil
}

// Filter applies the confidence threshold, the relevant-class filter and NMS.
// The returned detections are ordered by descending score. raw is not
// modified.
func (d *ResultDetector) Filter(raw []Result) []Result {
	candidates := make([]Result, 0, len(raw))
	for _, r := range raw {
		if r.Score < d.config.ConfidenceThreshold {
			continue
		}
		if d.relevant != nil && !d.relevant[d.config.Labels.Name(r.Class)] {
			continue
		}
		candidates = append(candidates, r)
	}

	SortByScore(candidates)
	return ApplyGreedyNMS(candidates, NMSConfig{
		IoUThreshold: float64(d.config.NMSThreshold),
		ClassAware:   d.config.ClassAware,
	})
}

func (d *ResultDetector) toShape(r Result) *annotation.Shape {
	label := d.config.Labels.Name(r.Class)
	if len(r.Outline) >= 3 {
		return annotation.NewPolygon(r.Outline, label)
	}
	return annotation.NewBox(
		annotation.Point{X: r.Box.X1, Y: r.Box.Y1},
		annotation.Point{X: r.Box.X2, Y: r.Box.Y2},
		label,
	)
}
