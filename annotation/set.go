package annotation

// Set is the ordered list of shapes annotated on one image.
//
// A Set is owned by the editing surface. Format handlers only ever receive a
// Snapshot so they cannot hold on to live shapes.
type Set struct {
	shapes []*Shape
}

// NewSet creates a set holding the given shapes.
func NewSet(shapes ...*Shape) *Set {
	return &Set{shapes: append([]*Shape(nil), shapes...)}
}

// Len returns the number of shapes.
func (s *Set) Len() int { return len(s.shapes) }

// At returns the shape at index i.
func (s *Set) At(i int) *Shape { return s.shapes[i] }

// Shapes returns a copy of the shape slice. The shapes themselves are shared.
func (s *Set) Shapes() []*Shape {
	return append([]*Shape(nil), s.shapes...)
}

// Index returns the position of shape, or -1.
func (s *Set) Index(shape *Shape) int {
	for i, sh := range s.shapes {
		if sh == shape {
			return i
		}
	}
	return -1
}

// Contains reports whether shape is in the set.
func (s *Set) Contains(shape *Shape) bool {
	return s.Index(shape) >= 0
}

// Append adds shape at the end.
func (s *Set) Append(shape *Shape) {
	s.shapes = append(s.shapes, shape)
}

// Insert places shape at index i. Indices past the end append.
func (s *Set) Insert(i int, shape *Shape) {
	if i < 0 {
		i = 0
	}
	if i >= len(s.shapes) {
		s.shapes = append(s.shapes, shape)
		return
	}
	s.shapes = append(s.shapes, nil)
	copy(s.shapes[i+1:], s.shapes[i:])
	s.shapes[i] = shape
}

// Remove deletes shape and returns the index it had, or -1.
func (s *Set) Remove(shape *Shape) int {
	i := s.Index(shape)
	if i < 0 {
		return -1
	}
	s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
	return i
}

// Replace swaps the whole content for shapes.
func (s *Set) Replace(shapes []*Shape) {
	s.shapes = append([]*Shape(nil), shapes...)
}

// Clear removes every shape.
func (s *Set) Clear() {
	s.shapes = nil
}

// Snapshot returns deep copies of every shape, safe to hand to a handler.
func (s *Set) Snapshot() []*Shape {
	return CloneShapes(s.shapes)
}

// Labels returns the distinct non-empty labels in first-seen order.
func (s *Set) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, sh := range s.shapes {
		if sh.Label == "" || seen[sh.Label] {
			continue
		}
		seen[sh.Label] = true
		out = append(out, sh.Label)
	}
	return out
}

// Counts returns the number of boxes and polygons.
func (s *Set) Counts() (boxes, polygons int) {
	for _, sh := range s.shapes {
		switch sh.Kind {
		case KindBox:
			boxes++
		case KindPolygon:
			polygons++
		}
	}
	return boxes, polygons
}

// CloneShapes deep-copies a shape slice.
func CloneShapes(shapes []*Shape) []*Shape {
	if shapes == nil {
		return nil
	}
	out := make([]*Shape, len(shapes))
	for i, sh := range shapes {
		out[i] = sh.Clone()
	}
	return out
}
