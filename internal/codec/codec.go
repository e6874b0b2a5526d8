// Package codec converts between the in-memory list model and the wire/document
// shape used by the remote store, and generates item identifiers.
//
// All default-field population lives here (completed=false, numeric coercion
// and clamping of quantity/price) so the sync engine never duplicates
// defaulting rules.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/models"
	"github.com/google/uuid"
)

// number decodes from either a JSON number or a quoted numeric string.
// Documents written by older clients carry quantities as strings.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*n = number(f)
	return nil
}

type itemDoc struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Quantity  number `json:"quantity"`
	Price     number `json:"price"`
	Category  string `json:"category"`
	Completed bool   `json:"completed"`
}

type listDoc struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	OwnerID string    `json:"ownerId"`
	Items   []itemDoc `json:"items"`
	Version int64     `json:"version"`
}

// NewItemID returns a fresh random item identifier. Random v4 UUIDs keep ids
// collision-free across concurrent creators with no coordination.
func NewItemID() string {
	return uuid.NewString()
}

// NewItem builds a full-field item with a fresh id and completed=false.
// The name is trimmed and must be non-empty; negative quantity and price are
// clamped to zero; the category must belong to the fixed taxonomy.
func NewItem(name string, quantity, price float64, category models.Category) (models.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Item{}, common.ErrInvalidName
	}
	if !category.Valid() {
		return models.Item{}, fmt.Errorf("%w: unknown category %q", common.ErrInvalidCategory, category)
	}
	return models.Item{
		ID:        NewItemID(),
		Name:      name,
		Quantity:  max(quantity, 0),
		Price:     max(price, 0),
		Category:  category,
		Completed: false,
	}, nil
}

// EncodeList serializes a list into its document form.
func EncodeList(l *models.List) ([]byte, error) {
	doc := listDoc{
		ID:      l.ID,
		Name:    l.Name,
		OwnerID: l.OwnerID,
		Items:   make([]itemDoc, 0, len(l.Items)),
		Version: l.Version,
	}
	for _, item := range l.Items {
		doc.Items = append(doc.Items, encodeItem(item))
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding list %s: %w", l.ID, err)
	}
	return b, nil
}

// DecodeList parses a document into a list, applying the defaulting and
// sanitizing rules to every item.
func DecodeList(b []byte) (*models.List, error) {
	var doc listDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decoding list: %w", err)
	}
	l := &models.List{
		ID:      doc.ID,
		Name:    doc.Name,
		OwnerID: doc.OwnerID,
		Items:   make([]models.Item, 0, len(doc.Items)),
		Version: doc.Version,
	}
	for _, d := range doc.Items {
		l.Items = append(l.Items, decodeItem(d))
	}
	return l, nil
}

// EncodeItems serializes just the items array, the store's atomic write unit.
func EncodeItems(items []models.Item) ([]byte, error) {
	docs := make([]itemDoc, 0, len(items))
	for _, item := range items {
		docs = append(docs, encodeItem(item))
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encoding items: %w", err)
	}
	return b, nil
}

// DecodeItems parses an items array document.
func DecodeItems(b []byte) ([]models.Item, error) {
	var docs []itemDoc
	if err := json.Unmarshal(b, &docs); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}
	items := make([]models.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, decodeItem(d))
	}
	return items, nil
}

func encodeItem(item models.Item) itemDoc {
	return itemDoc{
		ID:        item.ID,
		Name:      item.Name,
		Quantity:  number(item.Quantity),
		Price:     number(item.Price),
		Category:  string(item.Category),
		Completed: item.Completed,
	}
}

func decodeItem(d itemDoc) models.Item {
	category := models.Category(d.Category)
	if !category.Valid() {
		category = models.CategoryUnset
	}
	return models.Item{
		ID:        d.ID,
		Name:      d.Name,
		Quantity:  max(float64(d.Quantity), 0),
		Price:     max(float64(d.Price), 0),
		Category:  category,
		Completed: d.Completed,
	}
}
