package database

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// ActivityTypeNames is the fixed activity enumeration, seeded once.
var ActivityTypeNames = []string{"create_note", "practice_speaking", "review"}

// Migrate creates missing tables and seeds the activity types. Every
// statement is idempotent, so it runs on each start.
func (db *DB) Migrate(ctx context.Context) error {
	raw, err := schemaFS.ReadFile("schema/" + string(db.Dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	// the mysql driver rejects multi-statement Exec by default
	for _, stmt := range splitStatements(string(raw)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return db.seedActivityTypes(ctx)
}

func (db *DB) seedActivityTypes(ctx context.Context) error {
	var stmt string
	switch db.Dialect {
	case MySQL:
		stmt = "INSERT IGNORE INTO activity_types (name) VALUES (?)"
	case Postgres:
		stmt = "INSERT INTO activity_types (name) VALUES (?) ON CONFLICT (name) DO NOTHING"
	default:
		stmt = "INSERT OR IGNORE INTO activity_types (name) VALUES (?)"
	}
	for _, name := range ActivityTypeNames {
		if _, err := db.ExecContext(ctx, db.Rebind(stmt), name); err != nil {
			return fmt.Errorf("seed activity type %s: %w", name, err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
