package session

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/history"
)

func (s *Session) execute(cmd history.Command) {
	s.history.Execute(cmd)
	s.changed()
}

func (s *Session) owned(shape *annotation.Shape) error {
	if s.imagePath == "" {
		return ErrNoImage
	}
	if shape == nil || !s.shapes.Contains(shape) {
		return ErrShapeNotFound
	}
	return nil
}

// AddShape appends shape to the open image.
func (s *Session) AddShape(shape *annotation.Shape) error {
	if s.imagePath == "" {
		return ErrNoImage
	}
	s.execute(history.NewAddShape(s.shapes, shape, nil))
	return nil
}

// DeleteShape removes shape from the open image.
func (s *Session) DeleteShape(shape *annotation.Shape) error {
	if err := s.owned(shape); err != nil {
		return err
	}
	s.execute(history.NewDeleteShape(s.shapes, shape, s.shapes.Index(shape), nil))
	return nil
}

// MoveShape translates shape by (dx, dy).
func (s *Session) MoveShape(shape *annotation.Shape, dx, dy float64) error {
	if err := s.owned(shape); err != nil {
		return err
	}
	moved := shape.Clone()
	moved.MoveBy(dx, dy)
	s.execute(history.NewMoveShape(shape, shape.Points, moved.Points, nil))
	return nil
}

// ResizeShape replaces the points of shape with points.
func (s *Session) ResizeShape(shape *annotation.Shape, points []annotation.Point) error {
	if err := s.owned(shape); err != nil {
		return err
	}
	if shape.Kind == annotation.KindBox && len(points) != 2 {
		return errors.Errorf("a box needs 2 points, got %d", len(points))
	}
	s.execute(history.NewResizeShape(shape, shape.Points, points, nil))
	return nil
}

// MovePoint moves the vertex at index of shape to p.
func (s *Session) MovePoint(shape *annotation.Shape, index int, p annotation.Point) error {
	if err := s.owned(shape); err != nil {
		return err
	}
	if index < 0 || index >= len(shape.Points) {
		return errors.Errorf("point index %d out of range [0, %d)", index, len(shape.Points))
	}
	s.execute(history.NewMovePoint(shape, index, shape.Points[index], p, nil))
	return nil
}

// ChangeLabel sets the label of shape. Setting the current label is a no-op.
func (s *Session) ChangeLabel(shape *annotation.Shape, label string) error {
	if err := s.owned(shape); err != nil {
		return err
	}
	if shape.Label == label {
		return nil
	}
	s.execute(history.NewChangeLabel(shape, shape.Label, label, nil))
	return nil
}

// DeletePoints removes the vertices at indices from a polygon.
//
// When fewer than 3 vertices would remain the whole shape is deleted instead.
//
// Returns:
//   - bool: True if the shape itself was deleted.
//   - error: If the shape is not in the open image, is not a polygon or an
//     index is out of range.
func (s *Session) DeletePoints(shape *annotation.Shape, indices []int) (bool, error) {
	if err := s.owned(shape); err != nil {
		return false, err
	}
	cmd, err := history.NewDeletePoints(shape, indices, nil)
	if errors.Is(err, history.ErrTooFewVertices) {
		s.execute(history.NewDeleteShape(s.shapes, shape, s.shapes.Index(shape), nil))
		return true, nil
	}
	if err != nil {
		return false, err
	}
	s.execute(cmd)
	return false, nil
}

// RenameLabel renames every shape labelled oldLabel in the open image.
//
// Returns:
//   - int: The number of shapes renamed. Nothing is recorded when it is 0.
func (s *Session) RenameLabel(oldLabel, newLabel string) (int, error) {
	if s.imagePath == "" {
		return 0, ErrNoImage
	}
	if oldLabel == newLabel {
		return 0, nil
	}
	matches := 0
	for _, sh := range s.shapes.Shapes() {
		if sh.Label == oldLabel {
			matches++
		}
	}
	if matches == 0 {
		return 0, nil
	}
	cmd := history.NewRenameLabel(s.shapes, oldLabel, newLabel, nil)
	s.execute(cmd)
	return cmd.Affected(), nil
}

// Undo reverts the last edit.
func (s *Session) Undo() bool { return s.after(s.history.Undo()) }

// Redo re-applies the last undone edit.
func (s *Session) Redo() bool { return s.after(s.history.Redo()) }

// UndoTo reverts up to steps edits.
func (s *Session) UndoTo(steps int) bool { return s.after(s.history.UndoTo(steps)) }

// RedoTo re-applies up to steps edits.
func (s *Session) RedoTo(steps int) bool { return s.after(s.history.RedoTo(steps)) }

// JumpTo moves the history to the state right after e.
func (s *Session) JumpTo(e history.Entry) bool { return s.after(s.history.JumpTo(e)) }

func (s *Session) after(applied bool) bool {
	if applied {
		s.changed()
	}
	return applied
}
