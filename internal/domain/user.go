// Package domain contains the core data types shared across the server.
package domain

// User is a registered account. PasswordHash is an Argon2id PHC string and
// is never exposed through any handler.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}
