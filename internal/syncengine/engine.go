// Package syncengine owns all writes to a single list and all reconciliation
// of incoming snapshots for it.
//
// Every item mutation is expressed as an idempotent, id-keyed transformation
// of the freshest reconciled items array, written back whole and guarded by
// the document version. A write that loses the version race is retried once
// against a re-fetched snapshot before the conflict is surfaced.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/listsync/internal/cache"
	"github.com/dmitrijs2005/listsync/internal/codec"
	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/logging"
	"github.com/dmitrijs2005/listsync/internal/models"
	"github.com/dmitrijs2005/listsync/internal/store"
	"github.com/sethvargo/go-retry"
)

// State is the engine's position in the sync state machine.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateSynced          State = "synced"
	StateMutationPending State = "mutation_pending"
	StateReconciling     State = "reconciling"
	StateClosed          State = "closed"
)

// errAlreadySatisfied marks a mutation whose effect is already present in the
// freshest base (a delete of a gone item, or an add retry whose earlier
// attempt actually landed). The engine reports success without writing.
var errAlreadySatisfied = errors.New("mutation already satisfied")

const conflictRetryDelay = 50 * time.Millisecond

type mutation struct {
	op string

	// applyItems derives the next items array from the freshest base.
	// Set for item mutations only.
	applyItems func(base *models.List) ([]models.Item, error)

	// rename carries the already-validated new name.
	rename *string

	// deleteList marks the terminal mutation.
	deleteList bool
}

type request struct {
	mut  *mutation
	done chan error
}

// Engine is the per-list sync state machine. One Engine instance exists per
// open list; all of its decisions run on the single Run goroutine, so
// mutations are serialized and reconciliation never interleaves a write.
type Engine struct {
	listID string
	st     store.Store
	cache  cache.Cache
	log    logging.Logger
	notify func(store.Snapshot)

	requests  chan *request
	snapshots chan store.Snapshot
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	state   State
	current *models.List
	deleted bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotify registers a callback invoked, in order, with the full current
// value whenever the reconciled or optimistic list changes, and with a
// Deleted snapshot when the list is removed. Consumers diff and render.
func WithNotify(fn func(store.Snapshot)) Option {
	return func(e *Engine) { e.notify = fn }
}

func New(listID string, st store.Store, c cache.Cache, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		listID:    listID,
		st:        st,
		cache:     c,
		log:       log.With("module", "syncengine", "list_id", listID),
		notify:    func(store.Snapshot) {},
		requests:  make(chan *request, 16),
		snapshots: make(chan store.Snapshot, 64),
		closed:    make(chan struct{}),
		state:     StateUninitialized,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Deliver hands a pushed snapshot to the engine's reconciliation inbox.
// Called by the subscription manager, in delivery order.
func (e *Engine) Deliver(sn store.Snapshot) {
	select {
	case e.snapshots <- sn:
	case <-e.closed:
	}
}

// Run processes mutations and snapshots until ctx is cancelled or the list is
// deleted. Queued mutations are rejected on shutdown, with ErrListDeleted
// when the list is gone and ErrSessionClosed otherwise; an in-flight write is
// allowed to complete first.
func (e *Engine) Run(ctx context.Context) error {
	defer e.shutdown()
	for {
		// drain the snapshot inbox first so the next write derives its base
		// from the freshest reconciled state
		select {
		case sn := <-e.snapshots:
			if e.reconcile(ctx, sn) {
				return nil
			}
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case sn := <-e.snapshots:
			if e.reconcile(ctx, sn) {
				return nil
			}
		case req := <-e.requests:
			terminal := e.handle(ctx, req)
			if terminal {
				return nil
			}
		}
	}
}

func (e *Engine) shutdown() {
	e.closeOnce.Do(func() { close(e.closed) })
	e.setState(StateClosed)
	for {
		select {
		case req := <-e.requests:
			req.done <- e.closeErr()
		default:
			return
		}
	}
}

// closeErr distinguishes why the session ended: a list deleted remotely (or
// by this session) reports ErrListDeleted, everything else ErrSessionClosed.
func (e *Engine) closeErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return common.ErrListDeleted
	}
	return common.ErrSessionClosed
}

// reconcile applies an incoming snapshot. Returns true when the snapshot is
// terminal (list deleted remotely).
func (e *Engine) reconcile(ctx context.Context, sn store.Snapshot) bool {
	e.setState(StateReconciling)

	if sn.Deleted {
		e.log.Info(ctx, "list deleted remotely")
		e.dropList(ctx)
		return true
	}

	e.mu.Lock()
	stale := e.current != nil && sn.List.Version <= e.current.Version
	e.mu.Unlock()
	if stale {
		// self-echo of our own write, or an out-of-date delivery
		e.setState(StateSynced)
		return false
	}

	e.setCurrent(ctx, sn.List)
	e.notify(store.Snapshot{List: sn.List.Clone()})
	e.setState(StateSynced)
	return false
}

// setCurrent records the authoritative snapshot in the engine and the cache.
func (e *Engine) setCurrent(ctx context.Context, l *models.List) {
	e.mu.Lock()
	e.current = l.Clone()
	e.mu.Unlock()
	if err := e.cache.SetFromRemote(ctx, l); err != nil {
		e.log.Error(ctx, "failed to cache snapshot", "error", err)
	}
}

func (e *Engine) dropList(ctx context.Context) {
	e.mu.Lock()
	e.current = nil
	e.deleted = true
	e.mu.Unlock()
	if err := e.cache.Delete(ctx, e.listID); err != nil {
		e.log.Error(ctx, "failed to drop cached list", "error", err)
	}
	e.notify(store.Snapshot{Deleted: true})
	e.setState(StateClosed)
}

// base returns a copy of the latest reconciled snapshot, fetching it from the
// store when no snapshot has been delivered yet.
func (e *Engine) base(ctx context.Context) (*models.List, error) {
	e.mu.Lock()
	current := e.current
	e.mu.Unlock()
	if current != nil {
		return current.Clone(), nil
	}

	l, err := e.st.GetSnapshot(ctx, e.listID)
	if err != nil {
		return nil, err
	}
	e.setCurrent(ctx, l)
	return l.Clone(), nil
}

// handle executes one mutation end to end. Returns true when the mutation was
// the terminal list deletion.
func (e *Engine) handle(ctx context.Context, req *request) bool {
	e.setState(StateMutationPending)
	defer func() {
		if e.State() == StateMutationPending {
			e.setState(StateSynced)
		}
	}()

	var err error
	terminal := false
	switch {
	case req.mut.deleteList:
		err = e.handleDeleteList(ctx)
		terminal = err == nil
	case req.mut.rename != nil:
		err = e.handleRename(ctx, *req.mut.rename)
	default:
		err = e.handleItems(ctx, req.mut)
	}
	req.done <- err
	return terminal
}

func (e *Engine) handleDeleteList(ctx context.Context) error {
	if err := e.st.DeleteList(ctx, e.listID); err != nil {
		e.log.Error(ctx, "failed to delete list", "error", err)
		return err
	}
	e.dropList(ctx)
	return nil
}

func (e *Engine) handleRename(ctx context.Context, name string) error {
	base, err := e.base(ctx)
	if err != nil {
		return err
	}

	optimistic, err := e.cache.ApplyOptimistic(ctx, e.listID, func(l *models.List) (*models.List, error) {
		out := l.Clone()
		out.Name = name
		return out, nil
	})
	if err != nil {
		return err
	}
	e.notify(store.Snapshot{List: optimistic})

	if err := e.st.RenameList(ctx, e.listID, name); err != nil {
		e.rollback(ctx)
		return err
	}

	// the store's echo will carry the bumped version; record the new name now
	// so the echo reconciles to an identical value without flicker
	base.Name = name
	e.setCurrent(ctx, base)
	if err := e.cache.ClearOptimistic(ctx, e.listID); err != nil {
		e.log.Error(ctx, "failed to clear overlay", "error", err)
	}
	return nil
}

func (e *Engine) handleItems(ctx context.Context, mut *mutation) error {
	base, err := e.base(ctx)
	if err != nil {
		return err
	}

	// optimistic local edit, rolled back if the write fails
	optimistic, err := e.cache.ApplyOptimistic(ctx, e.listID, func(l *models.List) (*models.List, error) {
		items, err := mut.applyItems(l)
		if errors.Is(err, errAlreadySatisfied) {
			return l.Clone(), nil
		}
		if err != nil {
			return nil, err
		}
		out := l.Clone()
		out.Items = items
		return out, nil
	})
	if err != nil {
		return err
	}
	e.notify(store.Snapshot{List: optimistic})

	if err := e.write(ctx, mut, base); err != nil {
		e.rollback(ctx)
		return err
	}

	if err := e.cache.ClearOptimistic(ctx, e.listID); err != nil {
		e.log.Error(ctx, "failed to clear overlay", "error", err)
	}
	e.mu.Lock()
	current := e.current.Clone()
	e.mu.Unlock()
	e.notify(store.Snapshot{List: current})
	return nil
}

// write performs the read-apply-write sequence against the freshest base,
// retrying once against a re-fetched snapshot when the version check fails.
func (e *Engine) write(ctx context.Context, mut *mutation, base *models.List) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(conflictRetryDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		items, err := mut.applyItems(base)
		if errors.Is(err, errAlreadySatisfied) {
			return nil
		}
		if err != nil {
			return err
		}

		newVersion, err := e.st.ReplaceItems(ctx, e.listID, items, base.Version)
		if errors.Is(err, common.ErrVersionConflict) {
			// a peer's write landed between our read and write: re-derive the
			// base from the freshest snapshot and re-apply the same intent
			fresh, ferr := e.st.GetSnapshot(ctx, e.listID)
			if ferr != nil {
				return fmt.Errorf("refetch after conflict: %w", ferr)
			}
			e.setCurrent(ctx, fresh)
			base = fresh.Clone()
			e.log.Warn(ctx, "write conflict, retrying against fresh snapshot", "op", mut.op, "version", fresh.Version)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}

		next := base.Clone()
		next.Items = items
		next.Version = newVersion
		e.setCurrent(ctx, next)
		return nil
	})
}

// rollback restores the last authoritative snapshot after a failed write so
// the UI never keeps showing a change that did not durably happen.
func (e *Engine) rollback(ctx context.Context) {
	if err := e.cache.ClearOptimistic(ctx, e.listID); err != nil {
		e.log.Error(ctx, "failed to roll back overlay", "error", err)
	}
	e.mu.Lock()
	current := e.current
	e.mu.Unlock()
	if current != nil {
		e.notify(store.Snapshot{List: current.Clone()})
	}
}

func (e *Engine) enqueue(ctx context.Context, mut *mutation) error {
	req := &request{mut: mut, done: make(chan error, 1)}

	select {
	case e.requests <- req:
	case <-e.closed:
		return e.closeErr()
	case <-ctx.Done():
		// queued mutations are cancellable until the engine picks them up
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		// the in-flight write completes on the engine goroutine; its result
		// is discarded
		return ctx.Err()
	case <-e.closed:
		select {
		case err := <-req.done:
			return err
		default:
			return e.closeErr()
		}
	}
}

// AddItem validates locally, assigns a fresh id, and appends the item.
// Retrying after an ambiguous failure cannot duplicate the item: the id is
// fixed here, and the transformation skips the append when it already exists.
func (e *Engine) AddItem(ctx context.Context, name string, quantity, price float64, category models.Category) (models.Item, error) {
	item, err := codec.NewItem(name, quantity, price, category)
	if err != nil {
		return models.Item{}, err
	}

	mut := &mutation{
		op: "add",
		applyItems: func(base *models.List) ([]models.Item, error) {
			if base.FindItem(item.ID) >= 0 {
				return nil, errAlreadySatisfied
			}
			return append(slices.Clone(base.Items), item), nil
		},
	}
	if err := e.enqueue(ctx, mut); err != nil {
		return models.Item{}, err
	}
	return item, nil
}

// UpdateItem replaces the given fields of the item, preserving its id and
// every field not included in the update. A concurrently deleted target
// surfaces as ErrItemNotFound.
func (e *Engine) UpdateItem(ctx context.Context, itemID string, upd models.ItemUpdate) error {
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return common.ErrInvalidName
		}
		upd.Name = &trimmed
	}
	if upd.Category != nil && !upd.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", common.ErrInvalidCategory, *upd.Category)
	}

	mut := &mutation{
		op: "update",
		applyItems: func(base *models.List) ([]models.Item, error) {
			idx := base.FindItem(itemID)
			if idx < 0 {
				return nil, common.ErrItemNotFound
			}
			items := slices.Clone(base.Items)
			items[idx] = upd.ApplyTo(items[idx])
			return items, nil
		},
	}
	return e.enqueue(ctx, mut)
}

// ToggleCompleted flips the item's completed flag using the same id-keyed
// locate-and-replace as UpdateItem. Never a remove-then-re-add by value.
func (e *Engine) ToggleCompleted(ctx context.Context, itemID string) error {
	mut := &mutation{
		op: "toggle",
		applyItems: func(base *models.List) ([]models.Item, error) {
			idx := base.FindItem(itemID)
			if idx < 0 {
				return nil, common.ErrItemNotFound
			}
			items := slices.Clone(base.Items)
			items[idx].Completed = !items[idx].Completed
			return items, nil
		},
	}
	return e.enqueue(ctx, mut)
}

// DeleteItem filters the item out by id. Deleting an already-gone item is
// idempotent success, not an error.
func (e *Engine) DeleteItem(ctx context.Context, itemID string) error {
	mut := &mutation{
		op: "delete",
		applyItems: func(base *models.List) ([]models.Item, error) {
			idx := base.FindItem(itemID)
			if idx < 0 {
				return nil, errAlreadySatisfied
			}
			return slices.Delete(slices.Clone(base.Items), idx, idx+1), nil
		},
	}
	return e.enqueue(ctx, mut)
}

// Rename trims and validates the name locally; an empty result is rejected
// without contacting the store.
func (e *Engine) Rename(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return common.ErrInvalidName
	}
	return e.enqueue(ctx, &mutation{op: "rename", rename: &name})
}

// DeleteList removes the list. Terminal: once acknowledged the engine
// discards all state and stops.
func (e *Engine) DeleteList(ctx context.Context) error {
	return e.enqueue(ctx, &mutation{op: "delete_list", deleteList: true})
}
