package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite" // registers "sqlite"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Dialect names the SQL flavour behind a DB. Repositories branch on it only
// where the flavours genuinely differ (upserts, generated ids, greatest()).
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

func init() {
	// sqlx does not know the pure-Go sqlite driver name.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB is the explicitly constructed persistence handle passed to every
// repository. It is opened once in main and closed on shutdown.
type DB struct {
	*sqlx.DB
	Dialect Dialect
}

// Options selects the driver and its connection parameters.
type Options struct {
	Driver string // sqlite, mysql or postgres
	Path   string // sqlite file
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
}

// Open connects to the configured database, verifies the connection and
// applies the embedded schema.
func Open(opts Options) (*DB, error) {
	dialect := Dialect(opts.Driver)
	var (
		driverName string
		dsn        string
	)
	switch dialect {
	case SQLite:
		if dir := filepath.Dir(opts.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		driverName = "sqlite"
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", opts.Path)
	case MySQL:
		auth := opts.User
		if opts.Pass != "" {
			auth = fmt.Sprintf("%s:%s", opts.User, opts.Pass)
		}
		port := opts.Port
		if port == "" {
			port = "3306"
		}
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		driverName = "mysql"
		dsn = fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			auth, opts.Host, port, opts.Name)
	case Postgres:
		port := opts.Port
		if port == "" {
			port = "5432"
		}
		driverName = "postgres"
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			opts.Host, port, opts.User, opts.Pass, opts.Name)
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	sqlxDB, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	if dialect == SQLite {
		// one writer; also keeps per-connection pragmas in force
		sqlxDB.SetMaxOpenConns(1)
		sqlxDB.SetMaxIdleConns(1)
	} else {
		sqlxDB.SetMaxOpenConns(25)
		sqlxDB.SetMaxIdleConns(25)
		sqlxDB.SetConnMaxLifetime(30 * time.Minute)
	}

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlxDB.PingContext(ctx); err != nil {
		_ = sqlxDB.Close()
		return nil, err
	}

	db := &DB{DB: sqlxDB, Dialect: dialect}
	if err := db.Migrate(ctx); err != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// WriteResult is returned by every write so callers never rely on
// driver-side "last id" state.
type WriteResult struct {
	InsertedID   int64
	RowsAffected int64
}

// Write runs an UPDATE/DELETE through q (the DB itself when q is nil) and
// reports how many rows it touched.
func (db *DB) Write(ctx context.Context, q sqlx.ExecerContext, query string, args ...interface{}) (WriteResult, error) {
	if q == nil {
		q = db.DB
	}
	res, err := q.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return WriteResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return WriteResult{}, err
	}
	return WriteResult{RowsAffected: n}, nil
}

// Insert runs an INSERT into a table with an "id" primary key and returns
// the generated id. Postgres has no LastInsertId, so it uses RETURNING.
func (db *DB) Insert(ctx context.Context, query string, args ...interface{}) (WriteResult, error) {
	if db.Dialect == Postgres {
		var id int64
		if err := db.QueryRowxContext(ctx, db.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return WriteResult{}, err
		}
		return WriteResult{InsertedID: id, RowsAffected: 1}, nil
	}
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return WriteResult{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return WriteResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return WriteResult{}, err
	}
	return WriteResult{InsertedID: id, RowsAffected: n}, nil
}

// Greatest renders the two-argument maximum for the current dialect.
func (db *DB) Greatest(a, b string) string {
	if db.Dialect == SQLite {
		return fmt.Sprintf("MAX(%s, %s)", a, b)
	}
	return fmt.Sprintf("GREATEST(%s, %s)", a, b)
}

// Now returns the timestamp stored in created_at/updated_at columns.
// Microsecond precision matches every supported column type.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
