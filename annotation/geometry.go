package annotation

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Rect is an axis-aligned rectangle given by its extrema.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width is MaxX - MinX.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height is MaxY - MinY.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Area is Width * Height.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Center returns the centre point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.MinX + r.Width()/2, Y: r.MinY + r.Height()/2}
}

// Clamp restricts the rectangle to [0, width] x [0, height].
func (r Rect) Clamp(width, height float64) Rect {
	return Rect{
		MinX: clamp(r.MinX, 0, width),
		MinY: clamp(r.MinY, 0, height),
		MaxX: clamp(r.MaxX, 0, width),
		MaxY: clamp(r.MaxY, 0, height),
	}
}

// Corners returns the top-left and bottom-right points.
func (r Rect) Corners() (Point, Point) {
	return Point{X: r.MinX, Y: r.MinY}, Point{X: r.MaxX, Y: r.MaxY}
}

// Bounds computes the axis-aligned extrema of a point list.
//
// The result does not depend on point order, so it is the normalisation every
// format applies to a box's two unordered corners.
//
// Arguments:
//   - points: Any number of points. An empty list yields the zero Rect.
//
// Returns:
//   - Rect: The bounding rectangle.
//
// @example
// r := Bounds([]Point{{300, 350}, {100, 150}})
// // r == Rect{MinX: 100, MinY: 150, MaxX: 300, MaxY: 350}
func Bounds(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	xs, ys := Coordinates(points)
	return Rect{
		MinX: floats.Min(xs),
		MinY: floats.Min(ys),
		MaxX: floats.Max(xs),
		MaxY: floats.Max(ys),
	}
}

// Coordinates splits points into separate x and y slices.
func Coordinates(points []Point) (xs, ys []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return xs, ys
}

// PolygonArea computes the area of a simple polygon with the shoelace formula.
//
// The vertex list must be open (no repeated closing point); the wrap-around
// edge from the last vertex back to the first is implied.
//
// Arguments:
//   - points: The open vertex list.
//
// Returns:
//   - float64: The absolute area in square pixels, 0 for fewer than 3 vertices.
//
// @example
// area := PolygonArea([]Point{{100, 100}, {200, 100}, {150, 200}}) // 5000
func PolygonArea(points []Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	xs, ys := Coordinates(points)

	// Rotate by one so that index i pairs with vertex i+1 (mod n).
	xsNext := append(append(make([]float64, 0, n), xs[1:]...), xs[0])
	ysNext := append(append(make([]float64, 0, n), ys[1:]...), ys[0])

	sum := floats.Dot(xs, ysNext) - floats.Dot(xsNext, ys)
	return math.Abs(sum) / 2
}

// FlattenPoints returns x1, y1, x2, y2, ... for the given points.
func FlattenPoints(points []Point) []float64 {
	out := make([]float64, 0, 2*len(points))
	for _, p := range points {
		out = append(out, p.X, p.Y)
	}
	return out
}

// PairPoints is the inverse of FlattenPoints. A trailing odd value is ignored.
func PairPoints(coords []float64) []Point {
	out := make([]Point, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		out = append(out, Point{X: coords[i], Y: coords[i+1]})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
