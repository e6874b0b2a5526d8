package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/listsync/internal/models"
	"github.com/dmitrijs2005/listsync/internal/store"
	"github.com/dmitrijs2005/listsync/internal/syncengine"
)

// Lists prints every list of the authenticated user.
func (a *App) Lists(ctx context.Context) error {
	all, err := a.client.ListsByOwner(ctx, "")
	if err != nil {
		return err
	}
	if len(all) == 0 {
		printlnFn("No lists yet. Use 'create' to make one.")
		return nil
	}
	for _, l := range all {
		printlnFn(fmt.Sprintf("%s  %s (%d items)", l.ID, l.Name, len(l.Items)))
	}
	return nil
}

// CreateList prompts for a name, creates the list and opens it.
func (a *App) CreateList(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Enter list name", os.Stdout)
	if err != nil {
		return err
	}

	id, err := a.client.CreateList(ctx, name, "")
	if err != nil {
		return err
	}
	printlnFn("Created list", id)
	return a.openByID(ctx, id)
}

// OpenList starts a sync session for the given list id.
func (a *App) OpenList(ctx context.Context, arg string) error {
	if arg == "" {
		var err error
		arg, err = GetSimpleText(a.reader, "Enter list id", os.Stdout)
		if err != nil {
			return err
		}
	}
	return a.openByID(ctx, arg)
}

func (a *App) openByID(ctx context.Context, id string) error {
	_, err := a.manager.Open(ctx, id, syncengine.WithNotify(a.onSnapshot))
	if err != nil {
		return err
	}
	a.current = id
	return a.Show(ctx)
}

// onSnapshot runs on the engine goroutine for every fresh snapshot.
func (a *App) onSnapshot(sn store.Snapshot) {
	if sn.Deleted {
		printlnFn("List was deleted remotely. Use 'close' to leave it.")
		return
	}
	printlnFn(fmt.Sprintf("Synced: %s (v%d, %d items)", sn.List.Name, sn.List.Version, len(sn.List.Items)))
}

// CloseList ends the sync session for the open list.
func (a *App) CloseList(ctx context.Context) error {
	if a.current == "" {
		return nil
	}
	a.manager.Close(a.current)
	a.current = ""
	return nil
}

// Show renders the open list from the local cache, optimistic edits included.
func (a *App) Show(ctx context.Context) error {
	l, err := a.openList(ctx)
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("%s (v%d)", l.Name, l.Version))
	if len(l.Items) == 0 {
		printlnFn("  (empty)")
		return nil
	}
	for _, item := range l.Items {
		mark := " "
		if item.Completed {
			mark = "x"
		}
		printlnFn(fmt.Sprintf("  [%s] %s %s  x%g  %.2f  (%s)", mark, item.Category.Icon(), item.Name, item.Quantity, item.Price, shortID(item.ID)))
	}
	printlnFn(fmt.Sprintf("Total: %.2f", l.Total()))
	return nil
}

// RenameList prompts for a new name for the open list.
func (a *App) RenameList(ctx context.Context) error {
	e, err := a.engine()
	if err != nil {
		return err
	}
	name, err := GetSimpleText(a.reader, "Enter new name", os.Stdout)
	if err != nil {
		return err
	}
	return e.Rename(ctx, name)
}

// DeleteList deletes the open list for every member and closes the session.
func (a *App) DeleteList(ctx context.Context) error {
	e, err := a.engine()
	if err != nil {
		return err
	}
	confirm, err := GetSimpleText(a.reader, "Delete this list for everyone? (y/N)", os.Stdout)
	if err != nil {
		return err
	}
	if confirm != "y" && confirm != "Y" {
		return nil
	}
	if err := e.DeleteList(ctx); err != nil {
		return err
	}
	a.current = ""
	printlnFn("List deleted")
	return nil
}

// Categories prints the fixed taxonomy.
func (a *App) Categories(ctx context.Context) error {
	for _, c := range models.Categories() {
		printlnFn(fmt.Sprintf("  %s %s", c.Icon, c.Name))
	}
	return nil
}

func (a *App) engine() (*syncengine.Engine, error) {
	if a.current == "" {
		return nil, fmt.Errorf("no open list; use 'open <id>' first")
	}
	e := a.manager.Engine(a.current)
	if e == nil {
		return nil, fmt.Errorf("no open list; use 'open <id>' first")
	}
	return e, nil
}

func (a *App) openList(ctx context.Context) (*models.List, error) {
	if a.current == "" {
		return nil, fmt.Errorf("no open list; use 'open <id>' first")
	}
	return a.cache.Get(ctx, a.current)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
