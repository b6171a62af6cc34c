package annotation

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidSize is returned when an image dimension is not positive.
var ErrInvalidSize = errors.New("image width and height must be positive")

// YOLOBox is a box in normalised centre form.
type YOLOBox struct {
	CenterX, CenterY, Width, Height float64
}

// ToYOLOBox converts a box shape to normalised centre coordinates.
//
// The corners are normalised with min/max first, so the stored corner order is
// irrelevant.
//
// Arguments:
//   - width: The image width in pixels.
//   - height: The image height in pixels.
//
// Returns:
//   - YOLOBox: Centre and extent in [0, 1] for boxes inside the image.
//   - error: If the shape is not a box with two points or the size is invalid.
//
// @example
// b, _ := NewBox(Point{100, 100}, Point{300, 300}, "cat").ToYOLOBox(1000, 1000)
// // b == YOLOBox{0.2, 0.2, 0.2, 0.2}
func (s *Shape) ToYOLOBox(width, height int) (YOLOBox, error) {
	if s.Kind != KindBox || len(s.Points) < 2 {
		return YOLOBox{}, errors.Errorf("shape %s is not a box with 2 points", s.Kind)
	}
	if width <= 0 || height <= 0 {
		return YOLOBox{}, ErrInvalidSize
	}
	r := Bounds(s.Points[:2])
	w, h := float64(width), float64(height)
	return YOLOBox{
		CenterX: (r.MinX + r.MaxX) / (2 * w),
		CenterY: (r.MinY + r.MaxY) / (2 * h),
		Width:   r.Width() / w,
		Height:  r.Height() / h,
	}, nil
}

// ToYOLOPolygon converts a polygon to normalised vertices without the closing
// duplicate.
func (s *Shape) ToYOLOPolygon(width, height int) ([]Point, error) {
	if s.Kind != KindPolygon {
		return nil, errors.Errorf("shape %s is not a polygon", s.Kind)
	}
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	w, h := float64(width), float64(height)
	open := s.OpenPoints()
	out := make([]Point, len(open))
	for i, p := range open {
		out[i] = Point{X: p.X / w, Y: p.Y / h}
	}
	return out, nil
}

// FromYOLOBox creates a box shape from normalised centre coordinates.
//
// Corners are rounded to whole pixels.
func FromYOLOBox(b YOLOBox, width, height int, label string) *Shape {
	w, h := float64(width), float64(height)
	p1 := Point{
		X: math.Round((b.CenterX - b.Width/2) * w),
		Y: math.Round((b.CenterY - b.Height/2) * h),
	}
	p2 := Point{
		X: math.Round((b.CenterX + b.Width/2) * w),
		Y: math.Round((b.CenterY + b.Height/2) * h),
	}
	return NewBox(p1, p2, label)
}

// FromYOLOPolygon creates a closed polygon from a flat list of normalised
// x, y coordinates.
func FromYOLOPolygon(coords []float64, width, height int, label string) *Shape {
	w, h := float64(width), float64(height)
	points := PairPoints(coords)
	for i := range points {
		points[i] = Point{X: points[i].X * w, Y: points[i].Y * h}
	}
	return NewPolygon(points, label)
}
