package repository

import (
	"context"      // context carries request cancellation into queries
	"database/sql" // sql.ErrNoRows signals an unknown activity type
	"errors"       // errors.Is compares sentinel errors
	"fmt"          // fmt wraps read-back errors

	"github.com/iliyamo/speaknote/internal/database" // dialect-aware DB handle
	"github.com/iliyamo/speaknote/internal/model"    // activity and heatmap models
)

// ActivityRepo owns the per-user, per-type, per-day counters.
type ActivityRepo struct{ DB *database.DB }

func NewActivityRepo(db *database.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

// TypeID resolves a seeded activity type by name.
func (r *ActivityRepo) TypeID(ctx context.Context, name model.ActivityType) (int64, error) {
	var id int64
	err := r.DB.GetContext(ctx, &id, r.DB.Rebind("SELECT id FROM activity_types WHERE name = ?"), string(name))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInvalidReference
	}
	return id, err
}

// Upsert inserts the (user, type, date) counter with count 1 or increments
// the existing row, and returns the resulting count. It is one atomic
// statement on sqlite and postgres; on mysql the read-back happens inside
// the same transaction while the row lock from the upsert is still held.
// noteID is only stored on first insert.
func (r *ActivityRepo) Upsert(ctx context.Context, userID, typeID int64, date string, noteID *int64) (int, error) {
	var (
		count int
		err   error
	)
	// mysql has no RETURNING, so it takes the transactional path.
	switch r.DB.Dialect {
	case database.MySQL:
		count, err = r.upsertMySQL(ctx, userID, typeID, date, noteID)
	default:
		const q = `INSERT INTO activities (user_id, note_id, type_id, activity_date, count)
		           VALUES (?, ?, ?, ?, 1)
		           ON CONFLICT (user_id, type_id, activity_date)
		           DO UPDATE SET count = activities.count + 1
		           RETURNING count`
		err = r.DB.QueryRowxContext(ctx, r.DB.Rebind(q), userID, noteID, typeID, date).Scan(&count)
	}
	if err != nil {
		// unknown user, type or note
		if database.IsForeignKeyViolation(err) {
			return 0, ErrInvalidReference
		}
		return 0, err
	}
	return count, nil
}

// upsertMySQL runs the upsert and the read-back in one transaction.
func (r *ActivityRepo) upsertMySQL(ctx context.Context, userID, typeID int64, date string, noteID *int64) (int, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() // no-op after commit

	const qUpsert = `INSERT INTO activities (user_id, note_id, type_id, activity_date, count)
	                 VALUES (?, ?, ?, ?, 1)
	                 ON DUPLICATE KEY UPDATE count = count + 1`
	if _, err := r.DB.Write(ctx, tx, qUpsert, userID, noteID, typeID, date); err != nil {
		return 0, err
	}
	// The upsert holds the row lock, so this sees our own increment.
	var count int
	const qRead = `SELECT count FROM activities WHERE user_id = ? AND type_id = ? AND activity_date = ?`
	if err := tx.GetContext(ctx, &count, qRead, userID, typeID, date); err != nil {
		return 0, fmt.Errorf("read back activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// Heatmap sums counts across all types for every date in [from, to] that
// has activity. Dates are compared as YYYY-MM-DD strings.
func (r *ActivityRepo) Heatmap(ctx context.Context, userID int64, from, to string) ([]model.HeatmapDay, error) {
	const q = `SELECT activity_date, SUM(count) AS total
	           FROM activities
	           WHERE user_id = ? AND activity_date BETWEEN ? AND ?
	           GROUP BY activity_date
	           HAVING SUM(count) > 0
	           ORDER BY activity_date`
	// Empty windows encode as [].
	days := []model.HeatmapDay{}
	if err := r.DB.SelectContext(ctx, &days, r.DB.Rebind(q), userID, from, to); err != nil {
		return nil, err
	}
	return days, nil
}

// Summary recomputes the dashboard counters from the authoritative tables.
// Tags counts distinct notes in practices rather than practice_speaking
// activities, because an activity row keeps only the note_id of its first
// insert that day.
func (r *ActivityRepo) Summary(ctx context.Context, userID int64) (model.SummaryStats, error) {
	const q = `SELECT
	             (SELECT COUNT(*) FROM notes WHERE user_id = ?) AS notes,
	             (SELECT COUNT(DISTINCT activity_date) FROM activities WHERE user_id = ?) AS days,
	             (SELECT COUNT(DISTINCT note_id) FROM practices WHERE user_id = ?) AS tags`
	var s model.SummaryStats
	row := r.DB.QueryRowxContext(ctx, r.DB.Rebind(q), userID, userID, userID)
	if err := row.Scan(&s.Notes, &s.Days, &s.Tags); err != nil {
		return s, err
	}
	return s, nil
}
