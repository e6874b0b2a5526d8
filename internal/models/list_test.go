package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTotal(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  float64
	}{
		{name: "empty", items: nil, want: 0},
		{name: "single", items: []Item{{Quantity: 2, Price: 50}}, want: 100},
		{name: "mixed", items: []Item{
			{Quantity: 2, Price: 50},
			{Quantity: 1, Price: 40},
			{Quantity: 0, Price: 99},
		}, want: 140},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &List{Items: tt.items}
			assert.Equal(t, tt.want, l.Total())
		})
	}
}

func TestListClone(t *testing.T) {
	l := &List{
		ID:      "l1",
		Name:    "Groceries",
		Items:   []Item{{ID: "i1", Name: "Milk"}},
		Version: 3,
	}

	c := l.Clone()
	require.Equal(t, l, c)

	c.Items[0].Name = "Bread"
	assert.Equal(t, "Milk", l.Items[0].Name)
}

func TestListFindItem(t *testing.T) {
	l := &List{Items: []Item{{ID: "a"}, {ID: "b"}}}
	assert.Equal(t, 1, l.FindItem("b"))
	assert.Equal(t, -1, l.FindItem("c"))
}

func TestItemUpdateApplyTo(t *testing.T) {
	item := Item{ID: "i1", Name: "Milk", Quantity: 1, Price: 50, Category: "Dairy"}

	name := "Oat milk"
	done := true
	got := ItemUpdate{Name: &name, Completed: &done}.ApplyTo(item)

	assert.Equal(t, "i1", got.ID)
	assert.Equal(t, "Oat milk", got.Name)
	assert.Equal(t, 1.0, got.Quantity)
	assert.Equal(t, 50.0, got.Price)
	assert.Equal(t, Category("Dairy"), got.Category)
	assert.True(t, got.Completed)
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryUnset.Valid())
	assert.True(t, Category("Dairy").Valid())
	assert.False(t, Category("Spaceships").Valid())
}

func TestCategoriesAreDistinct(t *testing.T) {
	seen := map[Category]bool{}
	for _, c := range Categories() {
		require.False(t, seen[c.Name], "duplicate category %q", c.Name)
		seen[c.Name] = true
	}
}
