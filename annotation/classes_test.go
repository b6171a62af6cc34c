package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassTable_AddAssignsInsertionOrder(t *testing.T) {
	table := NewClassTable(nil)

	id, added := table.Add("cat")
	assert.Equal(t, 0, id)
	assert.True(t, added)

	id, added = table.Add("dog")
	assert.Equal(t, 1, id)
	assert.True(t, added)

	id, added = table.Add("cat")
	assert.Equal(t, 0, id)
	assert.False(t, added)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"cat", "dog"}, table.Names())
}

// TestClassTable_RemoveDoesNotRenumber documents that ids can diverge after a
// remove and re-add.
func TestClassTable_RemoveDoesNotRenumber(t *testing.T) {
	table := ClassTableFromNames([]string{"a", "b", "c"})
	require.True(t, table.Remove("a"))
	assert.False(t, table.Remove("a"))

	id, _ := table.ID("c")
	assert.Equal(t, 2, id)

	// Len is now 2, so the next new name collides with "c".
	id, added := table.Add("d")
	assert.True(t, added)
	assert.Equal(t, 2, id)

	_, ok := table.Name(0)
	assert.False(t, ok)
}

func TestClassTable_Lookup(t *testing.T) {
	table := NewClassTable(map[string]int{"person": 0, "car": 2})

	name, ok := table.Name(2)
	assert.True(t, ok)
	assert.Equal(t, "car", name)

	id, ok := table.ID("bike")
	assert.False(t, ok)
	assert.Equal(t, -1, id)

	assert.True(t, table.Has("person"))
	assert.Equal(t, []Class{{0, "person"}, {2, "car"}}, table.Classes())
}

func TestClassTable_SetReplacesID(t *testing.T) {
	table := ClassTableFromNames([]string{"a", "b"})
	table.Set("a", 5)

	id, _ := table.ID("a")
	assert.Equal(t, 5, id)
	_, ok := table.Name(0)
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "a"}, table.Names())
}

func TestClassTable_CloneIsIndependent(t *testing.T) {
	table := ClassTableFromNames([]string{"a"})
	clone := table.Clone()
	clone.Add("b")
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, map[string]int{"a": 0, "b": 1}, clone.Map())
}

func TestClassTable_NilIsEmpty(t *testing.T) {
	var table *ClassTable
	assert.Zero(t, table.Len())
	assert.False(t, table.Has("x"))
	assert.Empty(t, table.Names())
	assert.Empty(t, table.Map())
}
