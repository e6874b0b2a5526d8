// Package hub fans out list snapshots to connected watchers. Every committed
// write is broadcast to all watchers of the affected list so clients receive
// fresh snapshots without polling.
package hub

import (
	"sync"

	"github.com/dmitrijs2005/listsync/internal/store"
)

const watcherBuffer = 16

// Watcher is one subscriber of a single list. Its channel is closed when the
// list is deleted, when Close is called, or when the watcher falls too far
// behind the broadcast stream.
type Watcher struct {
	hub    *Hub
	listID string
	ch     chan store.Snapshot
	once   sync.Once
}

// Events returns the snapshot stream. The channel is closed when the
// subscription ends; a Deleted snapshot, if any, is delivered before close.
func (w *Watcher) Events() <-chan store.Snapshot {
	return w.ch
}

// Close detaches the watcher and closes its channel. Safe to call more than
// once and safe to race with a broadcast.
func (w *Watcher) Close() {
	w.hub.remove(w)
}

// Hub tracks watchers per list.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[*Watcher]struct{}
}

func New() *Hub {
	return &Hub{watchers: make(map[string]map[*Watcher]struct{})}
}

// Subscribe registers a watcher for listID.
func (h *Hub) Subscribe(listID string) *Watcher {
	w := &Watcher{hub: h, listID: listID, ch: make(chan store.Snapshot, watcherBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[listID]
	if !ok {
		set = make(map[*Watcher]struct{})
		h.watchers[listID] = set
	}
	set[w] = struct{}{}
	return w
}

// Broadcast delivers snap to every watcher of listID. Sends never block: a
// watcher whose buffer is full is dropped, its channel closed. A Deleted
// snapshot ends every subscription for the list after delivery.
func (h *Hub) Broadcast(listID string, snap store.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for w := range h.watchers[listID] {
		select {
		case w.ch <- snap:
		default:
			h.removeLocked(w)
		}
	}

	if snap.Deleted {
		for w := range h.watchers[listID] {
			h.removeLocked(w)
		}
	}
}

// CloseAll ends every subscription without a deleted notification. Used on
// shutdown so clients see the stream end and reconnect to the next instance.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.watchers {
		for w := range set {
			w.once.Do(func() { close(w.ch) })
		}
	}
	h.watchers = make(map[string]map[*Watcher]struct{})
}

// WatcherCount returns the number of active watchers for listID.
func (h *Hub) WatcherCount(listID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[listID])
}

func (h *Hub) remove(w *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(w)
}

func (h *Hub) removeLocked(w *Watcher) {
	set, ok := h.watchers[w.listID]
	if ok {
		delete(set, w)
		if len(set) == 0 {
			delete(h.watchers, w.listID)
		}
	}
	w.once.Do(func() { close(w.ch) })
}
