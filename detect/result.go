// Package detect - object detector contract and post-processing of raw model output into shapes.
package detect

import (
	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/images"
)

// Result is a single raw detection produced by a Backend.
type Result struct {
	// Box is the detection box in image pixel coordinates.
	Box images.Rect
	// Score is the model confidence in [0, 1].
	Score float32
	// Class is the index into the backend's class list.
	Class int
	// Outline is an optional segmentation outline. When it has at least three
	// points the detection becomes a polygon instead of a box.
	Outline []annotation.Point
}
