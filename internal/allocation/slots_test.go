package allocation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}

func intPtr(v int) *int { return &v }

func TestExpandSlots(t *testing.T) {
	subjects := []Subject{
		{ID: id("flat"), Capacity: 3},
		{ID: id("sectioned"), Capacity: 99, Sections: []Section{
			{Name: "Morning", Capacity: intPtr(2)},
			{Capacity: intPtr(1)},
			{Name: "Evening"},
			{Name: "Broken", Capacity: intPtr(-4)},
		}},
		{ID: id("closed"), Capacity: 0},
		{ID: id("negative"), Capacity: -1},
	}

	table := ExpandSlots(subjects)
	require.Len(t, table.Slots, 7)

	flat := table.BySubject(id("flat"))
	require.Len(t, flat, 1)
	assert.Nil(t, flat[0].Section)
	assert.Equal(t, 3, flat[0].Remaining)

	sec := table.BySubject(id("sectioned"))
	require.Len(t, sec, 4)
	names := []string{*sec[0].Section, *sec[1].Section, *sec[2].Section, *sec[3].Section}
	assert.Equal(t, []string{"Morning", "S2", "Evening", "Broken"}, names)
	assert.Equal(t, []int{2, 1, 0, 0}, []int{sec[0].Remaining, sec[1].Remaining, sec[2].Remaining, sec[3].Remaining})

	closed := table.BySubject(id("closed"))
	require.Len(t, closed, 1)
	assert.Equal(t, 0, closed[0].Remaining)
	assert.Equal(t, 0, table.BySubject(id("negative"))[0].Remaining)
}

func TestExpandSlotsDoesNotMutateInput(t *testing.T) {
	subjects := []Subject{{ID: id("s"), Sections: []Section{{Capacity: intPtr(1)}}}}

	table := ExpandSlots(subjects)
	_, ok := table.Take(id("s"))
	require.True(t, ok)

	assert.Equal(t, "", subjects[0].Sections[0].Name)
	assert.Equal(t, 1, *subjects[0].Sections[0].Capacity)
}

func TestTakeFillsSectionsInOrder(t *testing.T) {
	table := ExpandSlots([]Subject{{ID: id("s"), Sections: []Section{
		{Name: "A", Capacity: intPtr(1)},
		{Name: "B", Capacity: intPtr(1)},
	}}})

	first, ok := table.Take(id("s"))
	require.True(t, ok)
	assert.Equal(t, "A", *first.Section)

	second, ok := table.Take(id("s"))
	require.True(t, ok)
	assert.Equal(t, "B", *second.Section)

	_, ok = table.Take(id("s"))
	assert.False(t, ok)
	for _, s := range table.Slots {
		assert.GreaterOrEqual(t, s.Remaining, 0)
	}

	_, ok = table.Take(id("unknown"))
	assert.False(t, ok)
	assert.False(t, table.Has(id("unknown")))
}
