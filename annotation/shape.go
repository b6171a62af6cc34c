// Package annotation - Annotation data model: shapes, class tables and per-image shape sets.
package annotation

import (
	"fmt"
	"image/color"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

// Kind is the geometric primitive of a shape.
type Kind string

const (
	// KindBox is an axis-aligned box described by two opposite corners.
	KindBox Kind = "box"
	// KindPolygon is a closed polygon with at least 3 vertices.
	KindPolygon Kind = "polygon"
)

// Point is a 2D coordinate in image pixel space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Shape is a single annotation: a box or a polygon with a label.
//
// Box shapes hold exactly two corner points in no particular order. Polygon
// shapes are stored closed: when there are more than two points the first and
// last points are equal.
type Shape struct {
	// Kind is the primitive type.
	Kind Kind
	// Points are the vertices in image pixel coordinates.
	Points []Point
	// Label is the classification name; empty means unlabeled.
	Label string
	// Selected is a transient UI flag. It is never persisted.
	Selected bool
	// Color is a display-only colour assigned at construction.
	Color color.NRGBA
}

// NewShape creates a shape with a copy of points and a random display colour.
//
// Polygons are closed on construction.
//
// Arguments:
//   - kind: The primitive type.
//   - points: The vertices in pixel coordinates. The slice is copied.
//   - label: The classification name.
//
// Returns:
//   - *Shape: The new shape.
//
// @example
// box := NewShape(KindBox, []Point{{100, 100}, {300, 300}}, "cat")
func NewShape(kind Kind, points []Point, label string) *Shape {
	s := &Shape{
		Kind:   kind,
		Points: append([]Point(nil), points...),
		Label:  label,
		Color:  RandomColor(),
	}
	if s.Kind == KindPolygon {
		s.ClosePolygon()
	}
	return s
}

// NewBox creates a box shape from two corners.
func NewBox(p1, p2 Point, label string) *Shape {
	return NewShape(KindBox, []Point{p1, p2}, label)
}

// NewPolygon creates a closed polygon shape.
func NewPolygon(points []Point, label string) *Shape {
	return NewShape(KindPolygon, points, label)
}

// RandomColor returns a fully saturated colour of random hue at half opacity.
func RandomColor() color.NRGBA {
	c := colorful.Hsv(float64(rand.Intn(360)), 1, 1)
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 128}
}

// Clone returns a deep copy of the shape. The display colour is kept.
func (s *Shape) Clone() *Shape {
	c := *s
	c.Points = append([]Point(nil), s.Points...)
	return &c
}

// IsClosed reports whether the shape is a closed polygon.
func (s *Shape) IsClosed() bool {
	n := len(s.Points)
	return s.Kind == KindPolygon && n > 2 && s.Points[0] == s.Points[n-1]
}

// OpenPoints returns the vertices without the closing duplicate.
func (s *Shape) OpenPoints() []Point {
	if s.IsClosed() {
		return append([]Point(nil), s.Points[:len(s.Points)-1]...)
	}
	return append([]Point(nil), s.Points...)
}

// VertexCount returns the number of distinct polygon vertices.
func (s *Shape) VertexCount() int {
	if s.IsClosed() {
		return len(s.Points) - 1
	}
	return len(s.Points)
}

// ClosePolygon appends a copy of the first point when a polygon with more than
// two points is open. It is a no-op for boxes and already closed polygons.
func (s *Shape) ClosePolygon() {
	if s.Kind != KindPolygon || len(s.Points) <= 2 {
		return
	}
	if s.Points[0] != s.Points[len(s.Points)-1] {
		s.Points = append(s.Points, s.Points[0])
	}
}

// RemovePoint deletes the vertex at index from a polygon and re-closes it.
//
// The removal is rejected when the shape is not a polygon, the index is out of
// range, or fewer than 3 distinct vertices would remain. On a closed polygon
// index 0 and the last index address the same vertex.
//
// Arguments:
//   - index: The index into Points.
//
// Returns:
//   - bool: True if the vertex was removed.
func (s *Shape) RemovePoint(index int) bool {
	if s.Kind != KindPolygon {
		return false
	}
	if index < 0 || index >= len(s.Points) {
		return false
	}
	if s.VertexCount()-1 < 3 {
		return false
	}

	if s.IsClosed() {
		open := s.Points[:len(s.Points)-1]
		if index == len(s.Points)-1 {
			index = 0
		}
		s.Points = append(append([]Point(nil), open[:index]...), open[index+1:]...)
	} else {
		s.Points = append(s.Points[:index], s.Points[index+1:]...)
	}
	s.ClosePolygon()
	return true
}

// MoveBy translates every point by (dx, dy).
func (s *Shape) MoveBy(dx, dy float64) {
	for i := range s.Points {
		s.Points[i] = s.Points[i].Add(dx, dy)
	}
}

// MovePoint sets the point at index to p.
//
// On a closed polygon moving the first or the last point moves both so the
// path stays closed.
//
// Returns:
//   - bool: False if index is out of range.
func (s *Shape) MovePoint(index int, p Point) bool {
	if index < 0 || index >= len(s.Points) {
		return false
	}
	closed := s.IsClosed()
	last := len(s.Points) - 1
	s.Points[index] = p
	if closed && (index == 0 || index == last) {
		s.Points[0] = p
		s.Points[last] = p
	}
	return true
}

// BoundingRect returns the axis-aligned extrema of all points as x, y, width
// and height. An empty shape yields zeros.
func (s *Shape) BoundingRect() (x, y, w, h float64) {
	r := Bounds(s.Points)
	return r.MinX, r.MinY, r.Width(), r.Height()
}

// Bounds returns the bounding rectangle of the shape.
func (s *Shape) Bounds() Rect {
	return Bounds(s.Points)
}

func (s *Shape) String() string {
	return fmt.Sprintf("%s %q %v", s.Kind, s.Label, s.Points)
}
