package model

import "time"

// User represents an application user record as stored in the `users`
// table.  PasswordHash never leaves the server; handlers expose users
// through their own response types.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
