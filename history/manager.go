package history

import (
	"log/slog"
	"sync"

	"github.com/nvr-ai/annotator/logging"
)

// DefaultMaxHistory is the undo depth used when none is configured.
const DefaultMaxHistory = 100

// Entry is one row of the history timeline.
type Entry struct {
	// Index is the position of the command in its stack, 0 being the oldest.
	Index int
	// Description is the command description.
	Description string
	// Done is true for applied commands and false for undone ones.
	Done bool
}

type subscriber struct {
	id int
	fn func()
}

// Manager keeps the undo and redo stacks.
//
// Each stack holds commands oldest first. Executing a new command clears the
// redo stack and the undo stack is trimmed from the oldest end to MaxHistory.
// Observers are notified exactly once per logical action, including multi
// step jumps.
type Manager struct {
	done       []Command
	undone     []Command
	maxHistory int
	logger     *slog.Logger

	mu     sync.Mutex
	subs   []subscriber
	nextID int
}

// NewManager creates a manager.
//
// Arguments:
//   - maxHistory: The undo depth. Values below 1 use DefaultMaxHistory.
//   - logger: Receives a debug record per applied command. Nil discards.
//
// Returns:
//   - *Manager: The manager.
//
// @example
// m := NewManager(100, logger)
// m.Execute(NewAddShape(set, shape, nil))
// m.Undo()
func NewManager(maxHistory int, logger *slog.Logger) *Manager {
	if maxHistory < 1 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		maxHistory: maxHistory,
		logger:     logging.OrDiscard(logger).With("component", "history"),
	}
}

// Subscribe registers fn to be called after every state change.
//
// Returns:
//   - func(): Removes the subscription.
func (m *Manager) Subscribe(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) notify() {
	m.mu.Lock()
	subs := append([]subscriber(nil), m.subs...)
	m.mu.Unlock()
	for _, s := range subs {
		s.fn()
	}
}

// Execute runs cmd and records it.
func (m *Manager) Execute(cmd Command) {
	cmd.Execute()
	m.done = append(m.done, cmd)
	m.undone = nil
	m.trim()
	m.logger.Debug("executed", "command", cmd.Description())
	m.notify()
}

func (m *Manager) trim() {
	if over := len(m.done) - m.maxHistory; over > 0 {
		m.done = append([]Command(nil), m.done[over:]...)
	}
}

func (m *Manager) undoOne() Command {
	n := len(m.done)
	if n == 0 {
		return nil
	}
	cmd := m.done[n-1]
	m.done = m.done[:n-1]
	cmd.Undo()
	m.undone = append(m.undone, cmd)
	m.logger.Debug("undone", "command", cmd.Description())
	return cmd
}

func (m *Manager) redoOne() Command {
	n := len(m.undone)
	if n == 0 {
		return nil
	}
	cmd := m.undone[n-1]
	m.undone = m.undone[:n-1]
	cmd.Execute()
	m.done = append(m.done, cmd)
	m.logger.Debug("redone", "command", cmd.Description())
	return cmd
}

// Undo reverts the most recent command. It returns false if there is nothing
// to undo.
func (m *Manager) Undo() bool {
	return m.UndoTo(1)
}

// Redo re-applies the most recently undone command. It returns false if there
// is nothing to redo.
func (m *Manager) Redo() bool {
	return m.RedoTo(1)
}

// UndoTo undoes up to steps commands with a single notification.
//
// Returns:
//   - bool: True if at least one command was undone.
func (m *Manager) UndoTo(steps int) bool {
	applied := 0
	for ; applied < steps; applied++ {
		if m.undoOne() == nil {
			break
		}
	}
	if applied > 0 {
		m.notify()
	}
	return applied > 0
}

// RedoTo redoes up to steps commands with a single notification.
//
// Returns:
//   - bool: True if at least one command was redone.
func (m *Manager) RedoTo(steps int) bool {
	applied := 0
	for ; applied < steps; applied++ {
		if m.redoOne() == nil {
			break
		}
	}
	if applied > 0 {
		m.notify()
	}
	return applied > 0
}

// CanUndo reports whether Undo would do anything.
func (m *Manager) CanUndo() bool { return len(m.done) > 0 }

// CanRedo reports whether Redo would do anything.
func (m *Manager) CanRedo() bool { return len(m.undone) > 0 }

// UndoCount is the depth of the undo stack.
func (m *Manager) UndoCount() int { return len(m.done) }

// RedoCount is the depth of the redo stack.
func (m *Manager) RedoCount() int { return len(m.undone) }

// MaxHistory returns the undo depth.
func (m *Manager) MaxHistory() int { return m.maxHistory }

// UndoDescription describes the command Undo would revert, or "".
func (m *Manager) UndoDescription() string {
	if n := len(m.done); n > 0 {
		return m.done[n-1].Description()
	}
	return ""
}

// RedoDescription describes the command Redo would apply, or "".
func (m *Manager) RedoDescription() string {
	if n := len(m.undone); n > 0 {
		return m.undone[n-1].Description()
	}
	return ""
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.done = nil
	m.undone = nil
	m.notify()
}

// SetMaxHistory changes the undo depth, trimming the oldest commands if
// needed. Values below 1 are raised to 1.
func (m *Manager) SetMaxHistory(n int) {
	m.maxHistory = max(1, n)
	m.trim()
	m.notify()
}

// History returns the timeline.
//
// Applied commands come first, oldest to newest, followed by undone commands
// with the next redo first. Each entry's Index is its position in its own
// stack.
func (m *Manager) History() []Entry {
	out := make([]Entry, 0, len(m.done)+len(m.undone))
	for i, c := range m.done {
		out = append(out, Entry{Index: i, Description: c.Description(), Done: true})
	}
	for i := len(m.undone) - 1; i >= 0; i-- {
		out = append(out, Entry{Index: i, Description: m.undone[i].Description(), Done: false})
	}
	return out
}

// Steps returns how many undo (done entries) or redo (undone entries) steps
// reach the state right after e.
func (m *Manager) Steps(e Entry) int {
	if e.Done {
		return len(m.done) - e.Index - 1
	}
	return len(m.undone) - e.Index
}

// JumpTo moves the history to the state right after e as one transaction.
//
// Returns:
//   - bool: True if any command was applied.
func (m *Manager) JumpTo(e Entry) bool {
	steps := m.Steps(e)
	if steps <= 0 {
		return false
	}
	if e.Done {
		return m.UndoTo(steps)
	}
	return m.RedoTo(steps)
}
