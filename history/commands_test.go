package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/annotator/annotation"
)

type pt = annotation.Point

// state captures the observable content of a set for equality checks.
type state struct {
	Labels []string
	Points [][]pt
}

func capture(s *annotation.Set) state {
	var st state
	for _, sh := range s.Shapes() {
		st.Labels = append(st.Labels, sh.Label)
		st.Points = append(st.Points, append([]pt(nil), sh.Points...))
	}
	return st
}

func fixture() (*annotation.Set, *annotation.Shape, *annotation.Shape) {
	box := annotation.NewBox(pt{X: 10, Y: 10}, pt{X: 50, Y: 50}, "cat")
	poly := annotation.NewPolygon([]pt{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 5, Y: 15}, {X: 0, Y: 10}}, "roof")
	return annotation.NewSet(box, poly), box, poly
}

// TestCommands_Reversible runs execute, undo, execute for every command type
// and checks the set content at each step.
func TestCommands_Reversible(t *testing.T) {
	testCases := []struct {
		name  string
		build func(set *annotation.Set, box, poly *annotation.Shape) Command
	}{
		{"add shape", func(set *annotation.Set, _, _ *annotation.Shape) Command {
			return NewAddShape(set, annotation.NewBox(pt{X: 1, Y: 1}, pt{X: 2, Y: 2}, "dog"), nil)
		}},
		{"delete shape", func(set *annotation.Set, box, _ *annotation.Shape) Command {
			return NewDeleteShape(set, box, set.Index(box), nil)
		}},
		{"move shape", func(_ *annotation.Set, _, poly *annotation.Shape) Command {
			moved := poly.Clone()
			moved.MoveBy(5, 5)
			return NewMoveShape(poly, poly.Points, moved.Points, nil)
		}},
		{"resize shape", func(_ *annotation.Set, box, _ *annotation.Shape) Command {
			return NewResizeShape(box, box.Points, []pt{{X: 10, Y: 10}, {X: 90, Y: 70}}, nil)
		}},
		{"move first point of closed polygon", func(_ *annotation.Set, _, poly *annotation.Shape) Command {
			return NewMovePoint(poly, 0, poly.Points[0], pt{X: -3, Y: -3}, nil)
		}},
		{"move middle point", func(_ *annotation.Set, _, poly *annotation.Shape) Command {
			return NewMovePoint(poly, 2, poly.Points[2], pt{X: 20, Y: 20}, nil)
		}},
		{"change label", func(_ *annotation.Set, box, _ *annotation.Shape) Command {
			return NewChangeLabel(box, box.Label, "lion", nil)
		}},
		{"delete middle points", func(_ *annotation.Set, _, poly *annotation.Shape) Command {
			c, err := NewDeletePoints(poly, []int{1, 3}, nil)
			require.NoError(t, err)
			return c
		}},
		{"delete first point", func(_ *annotation.Set, _, poly *annotation.Shape) Command {
			c, err := NewDeletePoints(poly, []int{0}, nil)
			require.NoError(t, err)
			return c
		}},
		{"delete closing point", func(_ *annotation.Set, _, poly *annotation.Shape) Command {
			c, err := NewDeletePoints(poly, []int{len(poly.Points) - 1, 2}, nil)
			require.NoError(t, err)
			return c
		}},
		{"rename label", func(set *annotation.Set, _, _ *annotation.Shape) Command {
			return NewRenameLabel(set, "cat", "lion", nil)
		}},
		{"group", func(set *annotation.Set, box, _ *annotation.Shape) Command {
			return NewGroup("Detect Objects", []Command{
				NewAddShape(set, annotation.NewBox(pt{X: 1, Y: 1}, pt{X: 2, Y: 2}, "a"), nil),
				NewChangeLabel(box, box.Label, "b", nil),
				NewAddShape(set, annotation.NewBox(pt{X: 3, Y: 3}, pt{X: 4, Y: 4}, "c"), nil),
			}, nil)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			set, box, poly := fixture()
			cmd := tc.build(set, box, poly)
			before := capture(set)

			cmd.Execute()
			after := capture(set)
			assert.NotEqual(t, before, after, "execute must change the set")

			cmd.Undo()
			assert.Equal(t, before, capture(set), "undo must restore the exact state")

			cmd.Execute()
			assert.Equal(t, after, capture(set), "redo must match the first execute")

			for _, sh := range set.Shapes() {
				if sh.Kind == annotation.KindPolygon {
					assert.True(t, sh.IsClosed())
				}
			}
			assert.NotEmpty(t, cmd.Description())
		})
	}
}

func TestDeleteShape_RestoresIndex(t *testing.T) {
	a := annotation.NewBox(pt{X: 0, Y: 0}, pt{X: 1, Y: 1}, "a")
	b := annotation.NewBox(pt{X: 0, Y: 0}, pt{X: 1, Y: 1}, "b")
	c := annotation.NewBox(pt{X: 0, Y: 0}, pt{X: 1, Y: 1}, "c")
	set := annotation.NewSet(a, b, c)

	cmd := NewDeleteShape(set, b, 1, nil)
	cmd.Execute()
	assert.Equal(t, []string{"a", "c"}, capture(set).Labels)
	cmd.Undo()
	assert.Equal(t, []string{"a", "b", "c"}, capture(set).Labels)
	assert.Equal(t, "Delete Box", cmd.Description())
}

func TestDeletePoints_FirstPointRecloses(t *testing.T) {
	_, _, poly := fixture()
	cmd, err := NewDeletePoints(poly, []int{0}, nil)
	require.NoError(t, err)

	cmd.Execute()
	assert.Equal(t, []pt{{X: 10, Y: 0}, {X: 10, Y: 10}, {X: 5, Y: 15}, {X: 0, Y: 10}, {X: 10, Y: 0}}, poly.Points)
	assert.Equal(t, "Delete 1 Point", cmd.Description())
}

func TestNewDeletePoints_Rejects(t *testing.T) {
	_, box, poly := fixture()

	_, err := NewDeletePoints(box, []int{0}, nil)
	assert.Error(t, err, "boxes have no deletable points")

	_, err = NewDeletePoints(poly, []int{9}, nil)
	assert.Error(t, err)

	_, err = NewDeletePoints(poly, nil, nil)
	assert.Error(t, err)

	_, err = NewDeletePoints(poly, []int{1, 2, 3}, nil)
	assert.ErrorIs(t, err, ErrTooFewVertices)

	tri := annotation.NewPolygon([]pt{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}, "")
	_, err = NewDeletePoints(tri, []int{3}, nil)
	assert.ErrorIs(t, err, ErrTooFewVertices)
}

func TestDeletePoints_Description(t *testing.T) {
	_, _, poly := fixture()
	cmd, err := NewDeletePoints(poly, []int{1, 2, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cmd.Count())
	assert.Equal(t, "Delete 2 Points", cmd.Description())
}

// TestRenameLabel_OnlyExactMatches checks that undo leaves shapes renamed by
// other means untouched.
func TestRenameLabel_OnlyExactMatches(t *testing.T) {
	cat := annotation.NewBox(pt{X: 0, Y: 0}, pt{X: 1, Y: 1}, "cat")
	cats := annotation.NewBox(pt{X: 0, Y: 0}, pt{X: 1, Y: 1}, "cats")
	lion := annotation.NewBox(pt{X: 0, Y: 0}, pt{X: 1, Y: 1}, "lion")
	set := annotation.NewSet(cat, cats, lion)

	cmd := NewRenameLabel(set, "cat", "lion", nil)
	cmd.Execute()
	assert.Equal(t, 1, cmd.Affected())
	assert.Equal(t, []string{"lion", "cats", "lion"}, capture(set).Labels)

	cmd.Undo()
	assert.Equal(t, []string{"cat", "cats", "lion"}, capture(set).Labels)
	assert.Equal(t, "Rename 'cat' to 'lion'", cmd.Description())
	assert.Equal(t, "Clear label 'cat'", NewRenameLabel(set, "cat", "", nil).Description())
}

func TestCommands_InvokeOnChange(t *testing.T) {
	set, box, _ := fixture()
	calls := 0
	onChange := func() { calls++ }

	cmd := NewChangeLabel(box, "cat", "dog", onChange)
	cmd.Execute()
	cmd.Undo()
	assert.Equal(t, 2, calls)

	g := NewGroup("two", []Command{NewAddShape(set, annotation.NewBox(pt{}, pt{X: 1, Y: 1}, ""), nil)}, onChange)
	g.Execute()
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, g.Len())
}
