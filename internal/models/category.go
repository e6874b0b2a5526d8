package models

// Category classifies an item. The taxonomy is fixed and externally supplied;
// the sync engine treats it as an opaque validated string.
type Category string

// CategoryUnset is the sentinel for "no category chosen".
const CategoryUnset Category = ""

// CategoryInfo pairs a category name with its display glyph.
type CategoryInfo struct {
	Name Category
	Icon string
}

var categories = []CategoryInfo{
	{Name: "Others", Icon: "🤷‍♀️"},
	{Name: "Fruits", Icon: "🍎"},
	{Name: "Vegetables", Icon: "🥦"},
	{Name: "Dairy", Icon: "🥛"},
	{Name: "Meat", Icon: "🥩"},
	{Name: "Seafood", Icon: "🐟"},
	{Name: "Bakery", Icon: "🥐"},
	{Name: "Pantry", Icon: "🥫"},
	{Name: "Beverages", Icon: "🍹"},
	{Name: "Frozen", Icon: "🧊"},
	{Name: "Breakfast", Icon: "🥞"},
	{Name: "Wellness", Icon: "💊"},
	{Name: "Baby", Icon: "👶"},
	{Name: "Pets", Icon: "🐶"},
	{Name: "Household", Icon: "🧹"},
	{Name: "Personal", Icon: "🧴"},
	{Name: "International", Icon: "🌎"},
	{Name: "Gluten-Free", Icon: "🌾🚫"},
	{Name: "Baking", Icon: "🧁"},
	{Name: "Sweets", Icon: "🍭"},
	{Name: "Canned", Icon: "🥫"},
	{Name: "Condiments", Icon: "🧂"},
	{Name: "Prepared", Icon: "🥘"},
	{Name: "Seasonal", Icon: "🍂"},
}

var categoryIndex = func() map[Category]CategoryInfo {
	m := make(map[Category]CategoryInfo, len(categories))
	for _, c := range categories {
		m[c.Name] = c
	}
	return m
}()

// Categories returns the fixed taxonomy in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c names a known category or is the unset sentinel.
func (c Category) Valid() bool {
	if c == CategoryUnset {
		return true
	}
	_, ok := categoryIndex[c]
	return ok
}

// Icon returns the display glyph for the category, or an empty string.
func (c Category) Icon() string {
	return categoryIndex[c].Icon
}
