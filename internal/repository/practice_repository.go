package repository

import (
	"context" // context carries request cancellation into queries

	"github.com/iliyamo/speaknote/internal/database" // dialect-aware DB handle
	"github.com/iliyamo/speaknote/internal/model"    // practice model
)

// PracticeRepo stores practice attempts.
type PracticeRepo struct{ DB *database.DB }

func NewPracticeRepo(db *database.DB) *PracticeRepo { return &PracticeRepo{DB: db} }

// Create inserts p. The caller has already checked that the note belongs
// to p.UserID; a vanished note surfaces as ErrInvalidReference.
func (r *PracticeRepo) Create(ctx context.Context, p *model.Practice) (database.WriteResult, error) {
	// Stamp the row here so the returned practice matches what is stored.
	p.CreatedAt = database.Now()
	res, err := r.DB.Insert(ctx,
		`INSERT INTO practices (user_id, note_id, audio_url, pronunciation, intonation, fluency, feedback, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		p.UserID, p.NoteID, p.AudioURL, p.Pronunciation, p.Intonation, p.Fluency, p.Feedback, p.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return res, ErrInvalidReference
		}
		return res, err
	}
	// Fill in the generated id for the caller.
	p.ID = res.InsertedID
	return res, nil
}

// ListByUser returns the user's practices newest first, joined with the
// text and translation of the practiced note.
func (r *PracticeRepo) ListByUser(ctx context.Context, userID int64) ([]model.Practice, error) {
	const q = `SELECT p.id, p.user_id, p.note_id, p.audio_url, p.pronunciation, p.intonation,
	                  p.fluency, p.feedback, p.created_at,
	                  n.text AS note_text, n.translated_text AS note_translated_text
	           FROM practices p
	           JOIN notes n ON n.id = p.note_id
	           WHERE p.user_id = ?
	           ORDER BY p.created_at DESC, p.id DESC`
	// Empty history encodes as [].
	out := []model.Practice{}
	if err := r.DB.SelectContext(ctx, &out, r.DB.Rebind(q), userID); err != nil {
		return nil, err
	}
	return out, nil
}
