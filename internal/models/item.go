// Package models defines the list aggregate and its item type.
package models

// Item is a single line entry on a grocery list.
//
// The ID is generated client-side at creation time and never changes; all
// collection mutations locate items by ID, never by value equality.
type Item struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Quantity  float64  `json:"quantity"`
	Price     float64  `json:"price"`
	Category  Category `json:"category"`
	Completed bool     `json:"completed"`
}

// ItemUpdate carries a partial edit of an item. Nil fields are left unchanged.
type ItemUpdate struct {
	Name      *string
	Quantity  *float64
	Price     *float64
	Category  *Category
	Completed *bool
}

// ApplyTo returns a copy of item with the non-nil fields of u applied.
// The item ID is always preserved.
func (u ItemUpdate) ApplyTo(item Item) Item {
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Quantity != nil {
		item.Quantity = *u.Quantity
	}
	if u.Price != nil {
		item.Price = *u.Price
	}
	if u.Category != nil {
		item.Category = *u.Category
	}
	if u.Completed != nil {
		item.Completed = *u.Completed
	}
	return item
}
