package images

// Rect is an axis-aligned box in pixel coordinates.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// Width is X2 - X1.
func (r Rect) Width() float64 { return r.X2 - r.X1 }

// Height is Y2 - Y1.
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

// Area is Width * Height, or 0 for an inverted rectangle.
func (r Rect) Area() float64 {
	w, h := r.Width(), r.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// CalculateIoU returns the intersection over union of two rectangles.
//
// The intersection runs from the larger of the two top-left corners to the
// smaller of the two bottom-right corners. Rectangles that only touch have an
// IoU of 0.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle.
//
// Returns:
//   - float64: A value between 0.0 and 1.0.
//
// @example
// iou := CalculateIoU(Rect{0, 0, 10, 10}, Rect{5, 5, 15, 15}) // 25 / 175
func CalculateIoU(r, o Rect) float64 {
	inter := Rect{
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
		X2: min(r.X2, o.X2),
		Y2: min(r.Y2, o.Y2),
	}.Area()
	if inter == 0 {
		return 0
	}
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
