// Package model defines the data structures shared by the repository,
// service and handler layers.
//
// Struct tags:
//   - `db:"..."`   column names, used by sqlx when scanning rows
//   - `json:"..."` public API field names (snake_case, like the rest of the API)
//
// Secrets never leave the server: fields such as PasswordHash carry
// `json:"-"` so they cannot be serialised by accident.
package model

import "time"

// User is a registered account.
//
// Email is stored normalised (NFKC, trimmed, lower-cased) and is unique.
// ResetToken and ResetTokenExpires are both set by a forgot-password request
// and both cleared by a successful reset or by the expiry sweeper.
type User struct {
	ID                int64      `json:"id"         db:"id"`
	Name              string     `json:"name"       db:"name"`
	Email             string     `json:"email"      db:"email"`
	PasswordHash      string     `json:"-"          db:"password_hash"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	ResetToken        *string    `json:"-"          db:"reset_token"`
	ResetTokenExpires *time.Time `json:"-"          db:"reset_token_expires"`
}

// ResetTokenValid reports whether token matches the stored reset token and
// has not expired at now.
func (u *User) ResetTokenValid(token string, now time.Time) bool {
	if u.ResetToken == nil || u.ResetTokenExpires == nil || token == "" {
		return false
	}
	return *u.ResetToken == token && now.Before(*u.ResetTokenExpires)
}
