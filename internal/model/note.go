package model

import "time"

// Note is a user-authored text snippet that is enriched with a translation
// and synthesized audio. TranslatedText and AudioURL are nil until set and
// are never cleared afterwards.
type Note struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	Text           string    `db:"text" json:"text"`
	TranslatedText *string   `db:"translated_text" json:"translated_text"`
	AudioURL       *string   `db:"audio_url" json:"audio_url"`
	Progress       int       `db:"progress" json:"progress"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	// PracticeCount is filled by list queries; it is not a column.
	PracticeCount int   `db:"practice_count" json:"practice_count"`
	Stage         Stage `db:"-" json:"stage"`
}

// Stage is the derived lifecycle label of a note.
type Stage string

const (
	StageDraft      Stage = "draft"
	StageTranslated Stage = "translated"
	StageReady      Stage = "ready"
	StagePracticed  Stage = "practiced"
)

// Stages lists every stage in lifecycle order.
var Stages = []Stage{StageDraft, StageTranslated, StageReady, StagePracticed}

// DeriveStage computes the lifecycle stage of a note from the fields that
// are already persisted. Audio presence dominates a missing translation so
// anomalous rows still derive a stage.
func DeriveStage(n Note, practiceCount int) Stage {
	switch {
	case practiceCount > 0:
		return StagePracticed
	case isSet(n.AudioURL):
		return StageReady
	case isSet(n.TranslatedText):
		return StageTranslated
	default:
		return StageDraft
	}
}

// Rank orders stages; a note never moves to a lower rank.
func (s Stage) Rank() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

func isSet(s *string) bool { return s != nil && *s != "" }
