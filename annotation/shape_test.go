package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() *Shape {
	return NewPolygon([]Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, "roof")
}

func triangle() *Shape {
	return NewPolygon([]Point{{100, 100}, {200, 100}, {150, 200}}, "tri")
}

// TestNewShape_ClosesPolygons ensures construction closes polygons and copies the points.
func TestNewShape_ClosesPolygons(t *testing.T) {
	points := []Point{{0, 0}, {10, 0}, {10, 10}}
	s := NewPolygon(points, "a")

	require.Len(t, s.Points, 4)
	assert.Equal(t, s.Points[0], s.Points[3])
	assert.True(t, s.IsClosed())
	assert.Equal(t, 3, s.VertexCount())

	points[0] = Point{99, 99}
	assert.Equal(t, Point{0, 0}, s.Points[0], "constructor must copy points")
	assert.Equal(t, uint8(128), s.Color.A)
}

func TestNewShape_Box(t *testing.T) {
	b := NewBox(Point{300, 350}, Point{100, 150}, "cat")
	assert.Equal(t, KindBox, b.Kind)
	assert.Len(t, b.Points, 2)
	assert.False(t, b.IsClosed())
}

// TestClosePolygon_Idempotent checks that closing twice leaves one closing point.
func TestClosePolygon_Idempotent(t *testing.T) {
	s := square()
	before := len(s.Points)
	s.ClosePolygon()
	s.ClosePolygon()
	assert.Equal(t, before, len(s.Points))

	two := &Shape{Kind: KindPolygon, Points: []Point{{0, 0}, {1, 1}}}
	two.ClosePolygon()
	assert.Len(t, two.Points, 2, "two points cannot be closed")

	box := NewBox(Point{0, 0}, Point{1, 1}, "")
	box.ClosePolygon()
	assert.Len(t, box.Points, 2)
}

func TestRemovePoint(t *testing.T) {
	testCases := []struct {
		name    string
		shape   func() *Shape
		index   int
		ok      bool
		want    []Point
		wantLen int
	}{
		{
			name:  "middle vertex",
			shape: square,
			index: 1,
			ok:    true,
			want:  []Point{{0, 0}, {10, 10}, {0, 10}, {0, 0}},
		},
		{
			name:  "first vertex removes both ends",
			shape: square,
			index: 0,
			ok:    true,
			want:  []Point{{10, 0}, {10, 10}, {0, 10}, {10, 0}},
		},
		{
			name:  "closing index addresses the first vertex",
			shape: square,
			index: 4,
			ok:    true,
			want:  []Point{{10, 0}, {10, 10}, {0, 10}, {10, 0}},
		},
		{
			name:  "triangle is at the minimum",
			shape: triangle,
			index: 1,
			ok:    false,
		},
		{
			name:  "negative index",
			shape: square,
			index: -1,
			ok:    false,
		},
		{
			name:  "index out of range",
			shape: square,
			index: 5,
			ok:    false,
		},
		{
			name:  "boxes have no removable points",
			shape: func() *Shape { return NewBox(Point{0, 0}, Point{1, 1}, "") },
			index: 0,
			ok:    false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.shape()
			before := append([]Point(nil), s.Points...)
			ok := s.RemovePoint(tc.index)
			assert.Equal(t, tc.ok, ok)
			if !tc.ok {
				assert.Equal(t, before, s.Points, "rejected removal must not modify the shape")
				return
			}
			assert.Equal(t, tc.want, s.Points)
			assert.True(t, s.IsClosed())
		})
	}
}

// TestRemovePoint_KeepsClosure removes vertices until the minimum is reached.
func TestRemovePoint_KeepsClosure(t *testing.T) {
	s := NewPolygon([]Point{{0, 0}, {5, 0}, {10, 0}, {10, 5}, {10, 10}, {0, 10}}, "")
	for s.RemovePoint(1) {
		require.True(t, s.IsClosed())
		require.GreaterOrEqual(t, len(s.Points), 4)
	}
	assert.Equal(t, 3, s.VertexCount())
	assert.Len(t, s.Points, 4)
}

func TestMoveBy(t *testing.T) {
	s := triangle()
	s.MoveBy(10, -5)
	assert.Equal(t, Point{110, 95}, s.Points[0])
	assert.Equal(t, Point{160, 195}, s.Points[2])
	assert.True(t, s.IsClosed())
}

func TestMovePoint(t *testing.T) {
	t.Run("first point moves both ends", func(t *testing.T) {
		s := square()
		require.True(t, s.MovePoint(0, Point{-1, -1}))
		assert.Equal(t, Point{-1, -1}, s.Points[0])
		assert.Equal(t, Point{-1, -1}, s.Points[len(s.Points)-1])
	})

	t.Run("last point moves both ends", func(t *testing.T) {
		s := square()
		require.True(t, s.MovePoint(len(s.Points)-1, Point{2, 2}))
		assert.Equal(t, Point{2, 2}, s.Points[0])
		assert.True(t, s.IsClosed())
	})

	t.Run("middle point", func(t *testing.T) {
		s := square()
		require.True(t, s.MovePoint(2, Point{20, 20}))
		assert.Equal(t, Point{20, 20}, s.Points[2])
		assert.Equal(t, Point{0, 0}, s.Points[0])
	})

	t.Run("out of range", func(t *testing.T) {
		s := square()
		assert.False(t, s.MovePoint(5, Point{}))
		assert.False(t, s.MovePoint(-1, Point{}))
	})

	t.Run("box corner", func(t *testing.T) {
		b := NewBox(Point{0, 0}, Point{5, 5}, "")
		require.True(t, b.MovePoint(1, Point{8, 9}))
		assert.Equal(t, []Point{{0, 0}, {8, 9}}, b.Points)
	})
}

func TestBoundingRect(t *testing.T) {
	b := NewBox(Point{300, 350}, Point{100, 150}, "")
	x, y, w, h := b.BoundingRect()
	assert.Equal(t, []float64{100, 150, 200, 200}, []float64{x, y, w, h})

	empty := &Shape{Kind: KindPolygon}
	x, y, w, h = empty.BoundingRect()
	assert.Zero(t, x+y+w+h)
}

// TestClone_IsDeep verifies that mutating a clone leaves the original untouched.
func TestClone_IsDeep(t *testing.T) {
	s := square()
	c := s.Clone()
	c.MoveBy(1, 1)
	c.Label = "other"
	assert.Equal(t, Point{0, 0}, s.Points[0])
	assert.Equal(t, "roof", s.Label)
	assert.Equal(t, s.Color, c.Color)
}

func TestOpenPoints(t *testing.T) {
	assert.Equal(t, []Point{{100, 100}, {200, 100}, {150, 200}}, triangle().OpenPoints())
	assert.Len(t, NewBox(Point{0, 0}, Point{1, 1}, "").OpenPoints(), 2)
}
