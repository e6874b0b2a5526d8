package models

// List is the aggregate: a named, ordered collection of items owned by one
// user. Version is a monotonically increasing counter assigned by the store;
// every write carries the version it was derived from so the store can reject
// stale read-modify-write sequences.
type List struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"ownerId"`
	Items   []Item `json:"items"`
	Version int64  `json:"version"`
}

// Clone returns a deep copy of the list. Items are value types, so copying
// the backing slice is sufficient.
func (l *List) Clone() *List {
	if l == nil {
		return nil
	}
	c := *l
	c.Items = make([]Item, len(l.Items))
	copy(c.Items, l.Items)
	return &c
}

// FindItem returns the index of the item with the given id, or -1.
func (l *List) FindItem(id string) int {
	for i := range l.Items {
		if l.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Total is the derived read-only sum of price times quantity over all items.
func (l *List) Total() float64 {
	var total float64
	for _, item := range l.Items {
		total += item.Price * item.Quantity
	}
	return total
}
