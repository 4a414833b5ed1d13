// Package repository defines the persistence operations of the service and
// the sentinel errors they return. Handlers translate these into HTTP
// responses; they never inspect driver errors themselves.
package repository

import "errors"

// ErrNotFound is returned when a row scoped by (id, user_id) does not
// exist. It deliberately covers "not yours" as well so callers cannot
// probe for other users' ids.
var ErrNotFound = errors.New("not found or unauthorized")

// ErrUsernameExists is returned when a username is already taken.
var ErrUsernameExists = errors.New("username already exists")

// ErrInvalidReference is returned when a write names a user, note or
// activity type that does not exist.
var ErrInvalidReference = errors.New("invalid reference")

// ErrInvalidUpdate is returned when an update names a field outside the
// allow-list or carries no fields at all.
var ErrInvalidUpdate = errors.New("invalid update")
