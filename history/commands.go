package history

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/annotation"
)

// ErrTooFewVertices is returned when deleting points would leave a polygon
// with fewer than 3 vertices.
var ErrTooFewVertices = errors.New("polygon would have fewer than 3 vertices")

func kindTitle(k annotation.Kind) string {
	if k == annotation.KindBox {
		return "Box"
	}
	return "Polygon"
}

func copyPoints(points []annotation.Point) []annotation.Point {
	return append([]annotation.Point(nil), points...)
}

// AddShape appends a shape to a set.
type AddShape struct {
	set      *annotation.Set
	shape    *annotation.Shape
	onChange ChangeFunc
}

// NewAddShape creates a command that appends shape to set.
func NewAddShape(set *annotation.Set, shape *annotation.Shape, onChange ChangeFunc) *AddShape {
	return &AddShape{set: set, shape: shape, onChange: onChange}
}

// Execute appends the shape unless it is already present.
func (c *AddShape) Execute() {
	if !c.set.Contains(c.shape) {
		c.set.Append(c.shape)
	}
	c.onChange.notify()
}

// Undo removes the shape.
func (c *AddShape) Undo() {
	c.set.Remove(c.shape)
	c.onChange.notify()
}

// Description returns "Add Box" or "Add Polygon".
func (c *AddShape) Description() string { return "Add " + kindTitle(c.shape.Kind) }

// DeleteShape removes a shape and restores it at its original index on undo.
type DeleteShape struct {
	set      *annotation.Set
	shape    *annotation.Shape
	index    int
	onChange ChangeFunc
}

// NewDeleteShape creates a delete command.
//
// Arguments:
//   - set: The set holding the shape.
//   - shape: The shape to delete.
//   - index: The position of shape in set before deletion.
//   - onChange: Optional change callback.
//
// Returns:
//   - *DeleteShape: The command.
func NewDeleteShape(set *annotation.Set, shape *annotation.Shape, index int, onChange ChangeFunc) *DeleteShape {
	return &DeleteShape{set: set, shape: shape, index: index, onChange: onChange}
}

// Execute removes the shape.
func (c *DeleteShape) Execute() {
	c.set.Remove(c.shape)
	c.onChange.notify()
}

// Undo reinserts the shape at its original index.
func (c *DeleteShape) Undo() {
	if !c.set.Contains(c.shape) {
		c.set.Insert(c.index, c.shape)
	}
	c.onChange.notify()
}

// Description returns "Delete Box" or "Delete Polygon".
func (c *DeleteShape) Description() string { return "Delete " + kindTitle(c.shape.Kind) }

// setPoints replaces the full point list of a shape.
type setPoints struct {
	shape       *annotation.Shape
	old, new    []annotation.Point
	description string
	onChange    ChangeFunc
}

func (c *setPoints) Execute() {
	c.shape.Points = copyPoints(c.new)
	c.onChange.notify()
}

func (c *setPoints) Undo() {
	c.shape.Points = copyPoints(c.old)
	c.onChange.notify()
}

func (c *setPoints) Description() string { return c.description }

// MoveShape replaces the points of a translated shape.
type MoveShape struct{ setPoints }

// NewMoveShape creates a move command from the full point lists before and
// after the drag.
func NewMoveShape(shape *annotation.Shape, oldPoints, newPoints []annotation.Point, onChange ChangeFunc) *MoveShape {
	return &MoveShape{setPoints{
		shape:       shape,
		old:         copyPoints(oldPoints),
		new:         copyPoints(newPoints),
		description: "Move Shape",
		onChange:    onChange,
	}}
}

// ResizeShape replaces the points of a resized shape.
type ResizeShape struct{ setPoints }

// NewResizeShape creates a resize command from the full point lists before and
// after the resize.
func NewResizeShape(shape *annotation.Shape, oldPoints, newPoints []annotation.Point, onChange ChangeFunc) *ResizeShape {
	return &ResizeShape{setPoints{
		shape:       shape,
		old:         copyPoints(oldPoints),
		new:         copyPoints(newPoints),
		description: "Resize Shape",
		onChange:    onChange,
	}}
}

// MovePoint moves a single vertex.
//
// Moving either end of a closed polygon moves both ends.
type MovePoint struct {
	shape    *annotation.Shape
	index    int
	old, new annotation.Point
	onChange ChangeFunc
}

// NewMovePoint creates a single point move command.
func NewMovePoint(shape *annotation.Shape, index int, oldPos, newPos annotation.Point, onChange ChangeFunc) *MovePoint {
	return &MovePoint{shape: shape, index: index, old: oldPos, new: newPos, onChange: onChange}
}

// Execute moves the point to its new position.
func (c *MovePoint) Execute() {
	c.shape.MovePoint(c.index, c.new)
	c.onChange.notify()
}

// Undo moves the point back.
func (c *MovePoint) Undo() {
	c.shape.MovePoint(c.index, c.old)
	c.onChange.notify()
}

// Description returns "Move Point".
func (c *MovePoint) Description() string { return "Move Point" }

// ChangeLabel sets the label of one shape.
type ChangeLabel struct {
	shape    *annotation.Shape
	old, new string
	onChange ChangeFunc
}

// NewChangeLabel creates a label change command.
func NewChangeLabel(shape *annotation.Shape, oldLabel, newLabel string, onChange ChangeFunc) *ChangeLabel {
	return &ChangeLabel{shape: shape, old: oldLabel, new: newLabel, onChange: onChange}
}

// Execute applies the new label.
func (c *ChangeLabel) Execute() {
	c.shape.Label = c.new
	c.onChange.notify()
}

// Undo restores the old label.
func (c *ChangeLabel) Undo() {
	c.shape.Label = c.old
	c.onChange.notify()
}

// Description returns "Change Label to '<new>'".
func (c *ChangeLabel) Description() string {
	return fmt.Sprintf("Change Label to '%s'", c.new)
}

// IndexedPoint is a vertex together with its index in Shape.Points.
type IndexedPoint struct {
	Index int
	Point annotation.Point
}

// DeletePoints removes vertices from a polygon.
//
// Points are deleted in descending index order and restored in ascending order,
// which keeps every captured index valid. On a closed polygon the first and
// the closing vertex are the same vertex, so selecting either deletes both and
// the path is re-closed on the next vertex.
type DeletePoints struct {
	shape    *annotation.Shape
	deleted  []IndexedPoint
	vertices int
	reclosed bool
	onChange ChangeFunc
}

// NewDeletePoints creates a command deleting the vertices at indices.
//
// Arguments:
//   - shape: A polygon.
//   - indices: Indices into shape.Points. Duplicates are ignored.
//   - onChange: Optional change callback.
//
// Returns:
//   - *DeletePoints: The command.
//   - error: If shape is not a polygon, an index is out of range, or fewer
//     than 3 vertices would remain (ErrTooFewVertices).
func NewDeletePoints(shape *annotation.Shape, indices []int, onChange ChangeFunc) (*DeletePoints, error) {
	if shape.Kind != annotation.KindPolygon {
		return nil, errors.Errorf("cannot delete points of a %s", shape.Kind)
	}
	closed := shape.IsClosed()
	last := len(shape.Points) - 1

	unique := make(map[int]bool)
	vertices := make(map[int]bool)
	for _, i := range indices {
		if i < 0 || i > last {
			return nil, errors.Errorf("point index %d out of range [0, %d]", i, last)
		}
		if closed && (i == 0 || i == last) {
			unique[0] = true
			unique[last] = true
			vertices[0] = true
			continue
		}
		unique[i] = true
		vertices[i] = true
	}
	if len(unique) == 0 {
		return nil, errors.New("no points selected")
	}
	if shape.VertexCount()-len(vertices) < 3 {
		return nil, ErrTooFewVertices
	}

	deleted := make([]IndexedPoint, 0, len(unique))
	for i := range unique {
		deleted = append(deleted, IndexedPoint{Index: i, Point: shape.Points[i]})
	}
	sort.Slice(deleted, func(a, b int) bool { return deleted[a].Index > deleted[b].Index })

	return &DeletePoints{shape: shape, deleted: deleted, vertices: len(vertices), onChange: onChange}, nil
}

// Count returns the number of distinct vertices removed.
func (c *DeletePoints) Count() int { return c.vertices }

// Execute deletes the points and re-closes the polygon if needed.
func (c *DeletePoints) Execute() {
	points := c.shape.Points
	for _, d := range c.deleted {
		if d.Index >= 0 && d.Index < len(points) {
			points = append(points[:d.Index], points[d.Index+1:]...)
		}
	}
	c.shape.Points = points
	before := len(c.shape.Points)
	c.shape.ClosePolygon()
	c.reclosed = len(c.shape.Points) > before
	c.onChange.notify()
}

// Undo restores the deleted points at their original indices.
func (c *DeletePoints) Undo() {
	points := c.shape.Points
	if c.reclosed {
		points = points[:len(points)-1]
		c.reclosed = false
	}
	for i := len(c.deleted) - 1; i >= 0; i-- {
		d := c.deleted[i]
		points = append(points, annotation.Point{})
		copy(points[d.Index+1:], points[d.Index:])
		points[d.Index] = d.Point
	}
	c.shape.Points = points
	c.onChange.notify()
}

// Description returns "Delete N Point(s)".
func (c *DeletePoints) Description() string {
	n := c.Count()
	if n == 1 {
		return "Delete 1 Point"
	}
	return fmt.Sprintf("Delete %d Points", n)
}

// RenameLabel renames every shape whose label exactly matches a target label.
//
// The shapes actually renamed are tracked on each execute so undo only
// touches those.
type RenameLabel struct {
	set      *annotation.Set
	old, new string
	affected []*annotation.Shape
	onChange ChangeFunc
}

// NewRenameLabel creates a batch rename command. An empty newLabel clears the
// label.
func NewRenameLabel(set *annotation.Set, oldLabel, newLabel string, onChange ChangeFunc) *RenameLabel {
	return &RenameLabel{set: set, old: oldLabel, new: newLabel, onChange: onChange}
}

// Affected returns the number of shapes touched by the last execute.
func (c *RenameLabel) Affected() int { return len(c.affected) }

// Execute renames matching shapes.
func (c *RenameLabel) Execute() {
	c.affected = c.affected[:0]
	for _, s := range c.set.Shapes() {
		if s.Label == c.old {
			s.Label = c.new
			c.affected = append(c.affected, s)
		}
	}
	c.onChange.notify()
}

// Undo restores the old label on the shapes renamed by Execute.
func (c *RenameLabel) Undo() {
	for _, s := range c.affected {
		s.Label = c.old
	}
	c.onChange.notify()
}

// Description describes the rename or clear.
func (c *RenameLabel) Description() string {
	if c.new == "" {
		return fmt.Sprintf("Clear label '%s'", c.old)
	}
	return fmt.Sprintf("Rename '%s' to '%s'", c.old, c.new)
}
