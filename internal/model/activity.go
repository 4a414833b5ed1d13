package model

// ActivityType names one of the fixed, seeded activity kinds. Code refers
// to types by name; ids depend on seeding order and are looked up.
type ActivityType string

const (
	ActivityCreateNote       ActivityType = "create_note"
	ActivityPracticeSpeaking ActivityType = "practice_speaking"
	ActivityReview           ActivityType = "review"
)

// Valid reports whether t is part of the enumeration.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityCreateNote, ActivityPracticeSpeaking, ActivityReview:
		return true
	}
	return false
}

// Activity mirrors a row of `activities`: one counter per user, type and
// calendar day.
type Activity struct {
	ID     int64  `db:"id"`
	UserID int64  `db:"user_id"`
	NoteID *int64 `db:"note_id"`
	TypeID int64  `db:"type_id"`
	Date   string `db:"activity_date"`
	Count  int    `db:"count"`
}

// HeatmapDay is the aggregate count over all types for a single date.
type HeatmapDay struct {
	Date  string `db:"activity_date" json:"date"`
	Count int    `db:"total" json:"count"`
}

// SummaryStats are recomputed on read from the authoritative tables.
type SummaryStats struct {
	Notes int `json:"notes"`
	Days  int `json:"days"`
	Tags  int `json:"tags"`
}
