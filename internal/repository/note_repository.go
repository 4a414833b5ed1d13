package repository

import (
	"context"      // context carries request cancellation into queries
	"database/sql" // sql.ErrNoRows signals a missing row
	"errors"       // errors.Is compares sentinel errors
	"strings"      // strings joins the dynamic SET clause

	"github.com/iliyamo/speaknote/internal/database" // dialect-aware DB handle
	"github.com/iliyamo/speaknote/internal/model"    // note model and stage derivation
)

// NoteRepo persists notes. Every read and write except Create is scoped by
// (id, user_id).
type NoteRepo struct{ DB *database.DB }

func NewNoteRepo(db *database.DB) *NoteRepo { return &NoteRepo{DB: db} }

const noteColumns = `n.id, n.user_id, n.text, n.translated_text, n.audio_url, n.progress, n.created_at, n.updated_at`

// Create inserts a draft note for userID.
func (r *NoteRepo) Create(ctx context.Context, userID int64, text string) (database.WriteResult, error) {
	// created_at and updated_at start out equal
	now := database.Now()
	// A new note is always a draft: no translation, no audio, progress 0.
	res, err := r.DB.Insert(ctx,
		"INSERT INTO notes (user_id, text, progress, created_at, updated_at) VALUES (?,?,0,?,?)",
		userID, text, now, now)
	if err != nil {
		// the user row disappeared between auth and insert
		if database.IsForeignKeyViolation(err) {
			return res, ErrInvalidReference
		}
		return res, err
	}
	return res, nil
}

// ListByUser returns the user's notes newest first, each with its practice
// count and derived stage.
func (r *NoteRepo) ListByUser(ctx context.Context, userID int64) ([]model.Note, error) {
	q := `SELECT ` + noteColumns + `,
	             (SELECT COUNT(*) FROM practices p WHERE p.note_id = n.id) AS practice_count
	      FROM notes n
	      WHERE n.user_id = ?
	      ORDER BY n.created_at DESC, n.id DESC`
	// Start non-nil so an empty list encodes as [] rather than null.
	notes := []model.Note{}
	if err := r.DB.SelectContext(ctx, &notes, r.DB.Rebind(q), userID); err != nil {
		return nil, err
	}
	// The stage is never stored; derive it from the row.
	for i := range notes {
		notes[i].Stage = model.DeriveStage(notes[i], notes[i].PracticeCount)
	}
	return notes, nil
}

// GetOwned loads one note if it belongs to userID, otherwise ErrNotFound.
func (r *NoteRepo) GetOwned(ctx context.Context, id, userID int64) (model.Note, error) {
	q := `SELECT ` + noteColumns + `,
	             (SELECT COUNT(*) FROM practices p WHERE p.note_id = n.id) AS practice_count
	      FROM notes n
	      WHERE n.id = ? AND n.user_id = ?`
	var n model.Note
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind(q), id, userID)
	// A foreign note is indistinguishable from a missing one.
	if errors.Is(err, sql.ErrNoRows) {
		return n, ErrNotFound
	}
	if err != nil {
		return n, err
	}
	n.Stage = model.DeriveStage(n, n.PracticeCount)
	return n, nil
}

// NotePatch is the allow-listed set of mutable note fields. Nil means
// "leave unchanged"; there is no way to clear a field.
type NotePatch struct {
	Text           *string
	TranslatedText *string
	AudioURL       *string
	Progress       *int
}

func (p NotePatch) empty() bool {
	return p.Text == nil && p.TranslatedText == nil && p.AudioURL == nil && p.Progress == nil
}

// Patch applies p to the note (id, userID). Progress never decreases:
// the stored value becomes max(stored, new).
func (r *NoteRepo) Patch(ctx context.Context, id, userID int64, p NotePatch) (database.WriteResult, error) {
	// Nothing to change is a client error, not a silent success.
	if p.empty() {
		return database.WriteResult{}, ErrInvalidUpdate
	}
	// Collect one "column = ?" per present field.
	var (
		sets []string
		args []interface{}
	)
	if p.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *p.Text)
	}
	if p.TranslatedText != nil {
		sets = append(sets, "translated_text = ?")
		args = append(args, *p.TranslatedText)
	}
	if p.AudioURL != nil {
		sets = append(sets, "audio_url = ?")
		args = append(args, *p.AudioURL)
	}
	if p.Progress != nil {
		// GREATEST on mysql/postgres, MAX on sqlite
		sets = append(sets, "progress = "+r.DB.Greatest("progress", "?"))
		args = append(args, *p.Progress)
	}
	// Every successful patch bumps updated_at.
	sets = append(sets, "updated_at = ?")
	// Trailing args fill the WHERE clause.
	args = append(args, database.Now(), id, userID)

	q := "UPDATE notes SET " + strings.Join(sets, ", ") + " WHERE id = ? AND user_id = ?"
	res, err := r.DB.Write(ctx, nil, q, args...)
	if err != nil {
		return res, err
	}
	// no row matched (id, user_id)
	if res.RowsAffected == 0 {
		return res, ErrNotFound
	}
	return res, nil
}

// Delete removes the note (id, userID). Practices cascade; activities keep
// their counts with note_id set to NULL.
func (r *NoteRepo) Delete(ctx context.Context, id, userID int64) (database.WriteResult, error) {
	// Foreign keys do the rest: practices cascade, activities are detached.
	res, err := r.DB.Write(ctx, nil, "DELETE FROM notes WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return res, err
	}
	if res.RowsAffected == 0 {
		return res, ErrNotFound
	}
	return res, nil
}

// AudioURLReferenced reports whether any note or practice still points at url.
func (r *NoteRepo) AudioURLReferenced(ctx context.Context, url string) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind(
		`SELECT (SELECT COUNT(*) FROM notes WHERE audio_url = ?) + (SELECT COUNT(*) FROM practices WHERE audio_url = ?)`),
		url, url)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
