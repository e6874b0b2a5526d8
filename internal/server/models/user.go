// Package models defines server-side persistence types.
package models

// User is a registered account. PasswordHash is a bcrypt hash, never the
// plain password.
type User struct {
	ID           string
	Login        string
	PasswordHash string
}
