// Package wire defines the JSON shapes shared by the server API and the
// client transport.
package wire

import "github.com/dmitrijs2005/listsync/internal/models"

// Watch message types pushed over the watch websocket.
const (
	WatchSnapshot = "snapshot"
	WatchDeleted  = "deleted"
)

// WatchMessage is one pushed change notification. Type is WatchSnapshot with
// the full list value, or WatchDeleted when the document disappeared.
type WatchMessage struct {
	Type string       `json:"type"`
	List *models.List `json:"list,omitempty"`
}

type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type CreateListRequest struct {
	Name string `json:"name"`
}

type ReplaceItemsRequest struct {
	Items           []models.Item `json:"items"`
	ExpectedVersion int64         `json:"expectedVersion"`
}

type ReplaceItemsResponse struct {
	Version int64 `json:"version"`
}

type RenameListRequest struct {
	Name string `json:"name"`
}

type ListsResponse struct {
	Lists []*models.List `json:"lists"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
