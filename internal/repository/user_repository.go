package repository

import (
	"context"      // context carries request cancellation into queries
	"database/sql" // sql.ErrNoRows signals a missing user
	"errors"       // errors.Is compares sentinel errors
	"strings"      // strings trims usernames and joins SET clauses

	"github.com/iliyamo/speaknote/internal/database" // dialect-aware DB handle
	"github.com/iliyamo/speaknote/internal/model"    // user model
	"github.com/iliyamo/speaknote/internal/utils"    // bcrypt helpers
)

// UserRepo stores accounts.
type UserRepo struct{ DB *database.DB }

func NewUserRepo(db *database.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password and inserts the user.
func (r *UserRepo) Create(ctx context.Context, username, password string, cost int) (database.WriteResult, error) {
	// Usernames are stored trimmed so lookups match what users type.
	username = strings.TrimSpace(username)
	// Only the bcrypt hash is persisted.
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return database.WriteResult{}, err
	}
	res, err := r.DB.Insert(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?,?,?)",
		username, hash, database.Now())
	if err != nil {
		// UNIQUE(username) is the source of truth for duplicates.
		if database.IsUniqueViolation(err) {
			return database.WriteResult{}, ErrUsernameExists
		}
		return database.WriteResult{}, err
	}
	return res, nil
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(
		"SELECT id, username, password_hash, created_at FROM users WHERE username=? LIMIT 1"),
		strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(
		"SELECT id, username, password_hash, created_at FROM users WHERE id=? LIMIT 1"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// UserUpdate carries the optional profile changes; nil fields stay as they are.
type UserUpdate struct {
	Username *string
	Password *string
}

// Update applies the non-nil fields of upd to the user with the given id.
func (r *UserRepo) Update(ctx context.Context, id int64, upd UserUpdate, cost int) (database.WriteResult, error) {
	var (
		sets []string
		args []interface{}
	)
	if upd.Username != nil {
		sets = append(sets, "username=?")
		args = append(args, strings.TrimSpace(*upd.Username))
	}
	if upd.Password != nil {
		// Re-hash with the configured cost.
		hash, err := utils.HashPassword(*upd.Password, cost)
		if err != nil {
			return database.WriteResult{}, err
		}
		sets = append(sets, "password_hash=?")
		args = append(args, hash)
	}
	if len(sets) == 0 {
		return database.WriteResult{}, ErrInvalidUpdate
	}
	args = append(args, id)
	res, err := r.DB.Write(ctx, nil, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return res, ErrUsernameExists
		}
		return res, err
	}
	if res.RowsAffected == 0 {
		return res, ErrNotFound
	}
	return res, nil
}
