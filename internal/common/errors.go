// Package common contains shared constants and sentinel errors used across
// listsync components.
package common

import "errors"

var (

	// repository/store specific errors
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// engine-specific errors
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidItems    = errors.New("invalid items")
	ErrItemNotFound    = errors.New("item not found")
	ErrListDeleted     = errors.New("list deleted")
	ErrSessionClosed   = errors.New("session closed")

	// transport/auth errors
	ErrUnavailable  = errors.New("store unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")

	// account-specific errors
	ErrLoginAlreadyExists   = errors.New("login already exists")
	ErrInvalidLoginPassword = errors.New("invalid login/password")
)
