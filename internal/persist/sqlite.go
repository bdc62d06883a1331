package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver

	"pkt.systems/taskdeck/schema"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS visitor_state (
	visitor             TEXT PRIMARY KEY,
	initial_query       TEXT NOT NULL DEFAULT '',
	selected_repository TEXT NOT NULL DEFAULT '',
	updated_at          TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore keeps visitor state in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath. Use ":memory:"
// for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run schema migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SetInitialQuery implements core.StateStore.
func (s *SQLiteStore) SetInitialQuery(ctx context.Context, visitor schema.VisitorID, query string) error {
	const q = `
		INSERT INTO visitor_state (visitor, initial_query, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(visitor) DO UPDATE SET initial_query = excluded.initial_query, updated_at = excluded.updated_at
	`
	return s.exec(ctx, visitor, q, query)
}

// InitialQuery implements core.StateStore.
func (s *SQLiteStore) InitialQuery(ctx context.Context, visitor schema.VisitorID) (string, error) {
	return s.column(ctx, visitor, `SELECT initial_query FROM visitor_state WHERE visitor = ?`)
}

// SetSelectedRepository implements core.StateStore.
func (s *SQLiteStore) SetSelectedRepository(ctx context.Context, visitor schema.VisitorID, fullName string) error {
	const q = `
		INSERT INTO visitor_state (visitor, selected_repository, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(visitor) DO UPDATE SET selected_repository = excluded.selected_repository, updated_at = excluded.updated_at
	`
	return s.exec(ctx, visitor, q, fullName)
}

// SelectedRepository implements core.StateStore.
func (s *SQLiteStore) SelectedRepository(ctx context.Context, visitor schema.VisitorID) (string, error) {
	return s.column(ctx, visitor, `SELECT selected_repository FROM visitor_state WHERE visitor = ?`)
}

// Clear implements core.StateStore.
func (s *SQLiteStore) Clear(ctx context.Context, visitor schema.VisitorID) error {
	if err := schema.ValidateVisitorID(visitor); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM visitor_state WHERE visitor = ?`, string(visitor)); err != nil {
		return fmt.Errorf("clear visitor state: %w", err)
	}
	return nil
}

// PruneBefore deletes state last updated before cutoff and reports how many rows went.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitor_state WHERE updated_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune visitor state: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) exec(ctx context.Context, visitor schema.VisitorID, q, value string) error {
	if err := schema.ValidateVisitorID(visitor); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q, string(visitor), value, formatTime(time.Now())); err != nil {
		return fmt.Errorf("write visitor state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) column(ctx context.Context, visitor schema.VisitorID, q string) (string, error) {
	if err := schema.ValidateVisitorID(visitor); err != nil {
		return "", err
	}
	var value string
	err := s.db.QueryRowContext(ctx, q, string(visitor)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read visitor state: %w", err)
	}
	return value, nil
}

// timeLayout is fixed width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
