package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/logging"
	"github.com/dmitrijs2005/listsync/internal/server/services"
	"github.com/dmitrijs2005/listsync/internal/wire"
)

// Handler holds the services the HTTP layer delegates to.
type Handler struct {
	lists *services.ListService
	users *services.UserService
	log   logging.Logger
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req wire.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrInvalidLoginPassword)
		return
	}

	token, err := h.users.Register(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.TokenResponse{AccessToken: token})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req wire.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrInvalidLoginPassword)
		return
	}

	token, err := h.users.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.TokenResponse{AccessToken: token})
}

func (h *Handler) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.ListByOwner(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.ListsResponse{Lists: lists})
}

func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrInvalidName)
		return
	}

	l, err := h.lists.Create(r.Context(), UserIDFromContext(r.Context()), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	l, err := h.lists.Get(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	var req wire.ReplaceItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrInvalidItems)
		return
	}

	updated, err := h.lists.ReplaceItems(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"], req.Items, req.ExpectedVersion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.ReplaceItemsResponse{Version: updated.Version})
}

func (h *Handler) RenameList(w http.ResponseWriter, r *http.Request) {
	var req wire.RenameListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrInvalidName)
		return
	}

	l, err := h.lists.Rename(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) DeleteList(w http.ResponseWriter, r *http.Request) {
	if err := h.lists.Delete(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Unknown errors become 500
// without leaking their text.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, common.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrVersionConflict),
		errors.Is(err, common.ErrLoginAlreadyExists):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrInvalidName),
		errors.Is(err, common.ErrInvalidCategory),
		errors.Is(err, common.ErrInvalidItems):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrInvalidLoginPassword),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, err.Error()
	}

	writeJSON(w, status, wire.ErrorResponse{Error: msg})
}
