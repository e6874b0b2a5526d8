package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/listsync/internal/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Watch upgrades to a websocket and streams list snapshots: the current
// document first, then every committed change in order. A deleted list yields
// a final WatchDeleted message before the connection closes.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listID := mux.Vars(r)["id"]

	watcher, initial, err := h.lists.Watch(ctx, UserIDFromContext(ctx), listID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		watcher.Close()
		return
	}
	defer conn.Close()
	defer watcher.Close()

	// drain reads so we notice the peer going away
	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(wire.WatchMessage{Type: wire.WatchSnapshot, List: initial}); err != nil {
		return
	}

	for {
		select {
		case snap, ok := <-watcher.Events():
			if !ok {
				return
			}
			msg := wire.WatchMessage{Type: wire.WatchSnapshot, List: snap.List}
			if snap.Deleted {
				msg = wire.WatchMessage{Type: wire.WatchDeleted}
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
			if snap.Deleted {
				closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "list deleted")
				_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
				return
			}
		case <-peerGone:
			return
		case <-ctx.Done():
			return
		}
	}
}
