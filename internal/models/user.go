// Package models holds the records shared by the voicefeed server, the
// remote client and the workflow components.
package models

import "time"

// User is an authenticated account. Salt and PasswordHash never leave the
// server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Salt         []byte    `json:"-"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RefreshToken is a persisted, single-use refresh token.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
