// Package history - Reversible edit commands and the bounded undo/redo manager.
package history

// Command is a reversible edit.
//
// A command captures everything it needs to be exactly reversible when it is
// constructed. Execute after Undo must produce the same state as the first
// Execute.
type Command interface {
	Execute()
	Undo()
	Description() string
}

// ChangeFunc is invoked after a command executes or undoes.
type ChangeFunc func()

func (f ChangeFunc) notify() {
	if f != nil {
		f()
	}
}

// Group runs several commands as one undo step.
//
// Commands execute in order and undo in reverse order.
type Group struct {
	description string
	commands    []Command
	onChange    ChangeFunc
}

// NewGroup creates a composite command.
//
// Arguments:
//   - description: The text shown in the history timeline.
//   - commands: The commands to run, in execution order.
//   - onChange: Optional callback invoked once after execute and undo.
//
// Returns:
//   - *Group: The composite command.
//
// @example
// g := NewGroup("Detect Objects", []Command{add1, add2}, nil)
// manager.Execute(g)
func NewGroup(description string, commands []Command, onChange ChangeFunc) *Group {
	return &Group{
		description: description,
		commands:    append([]Command(nil), commands...),
		onChange:    onChange,
	}
}

// Len returns the number of grouped commands.
func (g *Group) Len() int { return len(g.commands) }

// Execute runs every command in order.
func (g *Group) Execute() {
	for _, c := range g.commands {
		c.Execute()
	}
	g.onChange.notify()
}

// Undo reverts every command in reverse order.
func (g *Group) Undo() {
	for i := len(g.commands) - 1; i >= 0; i-- {
		g.commands[i].Undo()
	}
	g.onChange.notify()
}

// Description returns the group description.
func (g *Group) Description() string { return g.description }
