package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/listsync/internal/models"
)

// AddItem prompts for the item fields and adds it to the open list.
func (a *App) AddItem(ctx context.Context) error {
	e, err := a.engine()
	if err != nil {
		return err
	}

	name, err := GetSimpleText(a.reader, "Item name", os.Stdout)
	if err != nil {
		return err
	}
	quantity, err := GetNumber(a.reader, "Quantity (default 1)", 1, os.Stdout)
	if err != nil {
		return err
	}
	price, err := GetNumber(a.reader, "Price (default 0)", 0, os.Stdout)
	if err != nil {
		return err
	}
	category, err := GetSimpleText(a.reader, "Category (empty for none, 'categories' lists them)", os.Stdout)
	if err != nil {
		return err
	}

	item, err := e.AddItem(ctx, name, quantity, price, models.Category(category))
	if err != nil {
		return err
	}
	printlnFn("Added", item.Name, shortID(item.ID))
	return nil
}

// ToggleItem flips the completed flag of one item.
func (a *App) ToggleItem(ctx context.Context, arg string) error {
	e, err := a.engine()
	if err != nil {
		return err
	}
	item, err := a.resolveItem(ctx, arg)
	if err != nil {
		return err
	}
	return e.ToggleCompleted(ctx, item.ID)
}

// EditItem prompts for new field values; empty input keeps the current value.
func (a *App) EditItem(ctx context.Context, arg string) error {
	e, err := a.engine()
	if err != nil {
		return err
	}
	item, err := a.resolveItem(ctx, arg)
	if err != nil {
		return err
	}

	var upd models.ItemUpdate

	name, err := GetSimpleText(a.reader, fmt.Sprintf("Name [%s]", item.Name), os.Stdout)
	if err != nil {
		return err
	}
	if name != "" {
		upd.Name = &name
	}

	quantity, err := GetNumber(a.reader, fmt.Sprintf("Quantity [%g]", item.Quantity), item.Quantity, os.Stdout)
	if err != nil {
		return err
	}
	if quantity != item.Quantity {
		upd.Quantity = &quantity
	}

	price, err := GetNumber(a.reader, fmt.Sprintf("Price [%.2f]", item.Price), item.Price, os.Stdout)
	if err != nil {
		return err
	}
	if price != item.Price {
		upd.Price = &price
	}

	categoryText, err := GetSimpleText(a.reader, fmt.Sprintf("Category [%s]", item.Category), os.Stdout)
	if err != nil {
		return err
	}
	if categoryText != "" {
		category := models.Category(categoryText)
		upd.Category = &category
	}

	return e.UpdateItem(ctx, item.ID, upd)
}

// DeleteItem removes one item from the open list.
func (a *App) DeleteItem(ctx context.Context, arg string) error {
	e, err := a.engine()
	if err != nil {
		return err
	}
	item, err := a.resolveItem(ctx, arg)
	if err != nil {
		return err
	}
	return e.DeleteItem(ctx, item.ID)
}

// resolveItem finds an item of the open list by exact id, id prefix or
// case-insensitive name, prompting when no argument was given.
func (a *App) resolveItem(ctx context.Context, arg string) (models.Item, error) {
	if arg == "" {
		var err error
		arg, err = GetSimpleText(a.reader, "Item id or name", os.Stdout)
		if err != nil {
			return models.Item{}, err
		}
	}

	l, err := a.openList(ctx)
	if err != nil {
		return models.Item{}, err
	}

	var matches []models.Item
	for _, item := range l.Items {
		if item.ID == arg {
			return item, nil
		}
		if strings.HasPrefix(item.ID, arg) || strings.EqualFold(item.Name, arg) {
			matches = append(matches, item)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return models.Item{}, fmt.Errorf("no item matches %q", arg)
	default:
		return models.Item{}, fmt.Errorf("%q is ambiguous, use a longer id prefix", arg)
	}
}
