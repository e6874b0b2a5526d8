// Package httpapi exposes the server over HTTP: a JSON REST surface for
// account and list operations plus a websocket endpoint that pushes list
// snapshots to watchers.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/listsync/internal/logging"
	"github.com/dmitrijs2005/listsync/internal/server/services"
)

// NewRouter wires all routes. Everything under /api/lists requires a valid
// access token.
func NewRouter(listSvc *services.ListService, userSvc *services.UserService, secretKey string, log logging.Logger) *mux.Router {
	h := &Handler{lists: listSvc, users: userSvc, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/api/ping", h.Ping).Methods(http.MethodGet)
	r.HandleFunc("/api/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/login", h.Login).Methods(http.MethodPost)

	authed := r.PathPrefix("/api/lists").Subrouter()
	authed.Use(AuthMiddleware([]byte(secretKey)))
	authed.HandleFunc("", h.ListLists).Methods(http.MethodGet)
	authed.HandleFunc("", h.CreateList).Methods(http.MethodPost)
	authed.HandleFunc("/{id}", h.GetList).Methods(http.MethodGet)
	authed.HandleFunc("/{id}", h.RenameList).Methods(http.MethodPatch)
	authed.HandleFunc("/{id}", h.DeleteList).Methods(http.MethodDelete)
	authed.HandleFunc("/{id}/items", h.ReplaceItems).Methods(http.MethodPut)
	authed.HandleFunc("/{id}/watch", h.Watch).Methods(http.MethodGet)

	return r
}
