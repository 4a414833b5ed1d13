package model

import "time"

// Practice is one recorded attempt at reading a note aloud. Scores are on a
// 0-100 scale and nil when neither the client nor a scorer supplied them.
type Practice struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	NoteID        int64     `db:"note_id" json:"note_id"`
	AudioURL      *string   `db:"audio_url" json:"audio_url"`
	Pronunciation *float64  `db:"pronunciation" json:"pronunciation"`
	Intonation    *float64  `db:"intonation" json:"intonation"`
	Fluency       *float64  `db:"fluency" json:"fluency"`
	Feedback      *string   `db:"feedback" json:"feedback"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`

	// Joined from notes by list queries.
	NoteText           *string `db:"note_text" json:"text,omitempty"`
	NoteTranslatedText *string `db:"note_translated_text" json:"translated_text,omitempty"`
}

// Scores groups the optional score fields of a practice.
type Scores struct {
	Pronunciation *float64 `json:"pronunciation"`
	Intonation    *float64 `json:"intonation"`
	Fluency       *float64 `json:"fluency"`
	Feedback      *string  `json:"feedback"`
}
