package annotation

import "sort"

// Class is one entry of a class table.
type Class struct {
	// ID is the integer written verbatim into every annotation format.
	ID int
	// Name is the human-readable label.
	Name string
}

// ClassTable maps label names to non-negative class ids.
//
// New names get id Len() when first seen. Removing a name never renumbers the
// remaining ids, so tables edited in different orders can diverge.
type ClassTable struct {
	nameToID map[string]int
	idToName map[int]string
}

// NewClassTable builds a table from an existing name to id mapping.
func NewClassTable(classes map[string]int) *ClassTable {
	t := &ClassTable{
		nameToID: make(map[string]int, len(classes)),
		idToName: make(map[int]string, len(classes)),
	}
	for name, id := range classes {
		t.Set(name, id)
	}
	return t
}

// ClassTableFromNames assigns ids 0..n-1 in slice order.
func ClassTableFromNames(names []string) *ClassTable {
	t := NewClassTable(nil)
	for _, name := range names {
		t.Add(name)
	}
	return t
}

// rebuildIndex rebuilds the id to name map.
func (t *ClassTable) rebuildIndex() {
	t.idToName = make(map[int]string, len(t.nameToID))
	for name, id := range t.nameToID {
		t.idToName[id] = name
	}
}

// Len returns the number of classes.
func (t *ClassTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nameToID)
}

// Add registers name with id Len() if it is not already present.
//
// Arguments:
//   - name: The label to register.
//
// Returns:
//   - int: The id of the name, existing or newly assigned.
//   - bool: True if the name was newly added.
func (t *ClassTable) Add(name string) (int, bool) {
	if id, ok := t.nameToID[name]; ok {
		return id, false
	}
	id := len(t.nameToID)
	t.Set(name, id)
	return id, true
}

// Set assigns id to name, replacing any previous id of that name.
func (t *ClassTable) Set(name string, id int) {
	if t.nameToID == nil {
		t.nameToID = make(map[string]int)
		t.idToName = make(map[int]string)
	}
	if old, ok := t.nameToID[name]; ok && t.idToName[old] == name {
		delete(t.idToName, old)
	}
	t.nameToID[name] = id
	t.idToName[id] = name
}

// Remove deletes name. Remaining ids are left untouched.
func (t *ClassTable) Remove(name string) bool {
	if _, ok := t.nameToID[name]; !ok {
		return false
	}
	delete(t.nameToID, name)
	t.rebuildIndex()
	return true
}

// ID returns the id of name.
func (t *ClassTable) ID(name string) (int, bool) {
	if t == nil {
		return -1, false
	}
	id, ok := t.nameToID[name]
	if !ok {
		return -1, false
	}
	return id, true
}

// Name returns the name registered for id.
func (t *ClassTable) Name(id int) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.idToName[id]
	return name, ok
}

// Has reports whether name is registered.
func (t *ClassTable) Has(name string) bool {
	_, ok := t.ID(name)
	return ok
}

// Classes returns all entries ordered by ascending id.
func (t *ClassTable) Classes() []Class {
	if t == nil {
		return nil
	}
	out := make([]Class, 0, len(t.nameToID))
	for name, id := range t.nameToID {
		out = append(out, Class{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Names returns the class names ordered by ascending id.
func (t *ClassTable) Names() []string {
	classes := t.Classes()
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Name
	}
	return out
}

// Map returns a copy of the name to id mapping.
func (t *ClassTable) Map() map[string]int {
	out := make(map[string]int, t.Len())
	if t == nil {
		return out
	}
	for name, id := range t.nameToID {
		out[name] = id
	}
	return out
}

// Clone returns an independent copy of the table.
func (t *ClassTable) Clone() *ClassTable {
	return NewClassTable(t.Map())
}
