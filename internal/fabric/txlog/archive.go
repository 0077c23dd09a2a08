package txlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Archive persists terminal transactions for later inspection, outside
// the logger's bounded in-memory window.
type Archive interface {
	Save(ctx context.Context, t *Transaction) error
	Close() error
}

// SQLiteArchive stores terminal transactions in a SQLite database,
// following the same driver/PRAGMA setup used for the component family's
// other embedded SQLite stores.
type SQLiteArchive struct {
	db *sql.DB
}

// OpenSQLiteArchive opens (creating if necessary) a SQLite-backed archive
// at dbPath.
func OpenSQLiteArchive(ctx context.Context, dbPath string) (*SQLiteArchive, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("txlog: create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("txlog: open archive: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("txlog: enable WAL mode: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	parent_id TEXT,
	name TEXT NOT NULL,
	stage TEXT NOT NULL,
	components TEXT NOT NULL,
	tags TEXT NOT NULL,
	start_time INTEGER,
	end_time INTEGER,
	duration_seconds REAL,
	error_count INTEGER NOT NULL,
	archived_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_stage ON transactions(stage);
CREATE INDEX IF NOT EXISTS idx_transactions_parent ON transactions(parent_id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("txlog: create archive schema: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

// Save inserts or replaces the terminal transaction t.
func (a *SQLiteArchive) Save(ctx context.Context, t *Transaction) error {
	t.mu.Lock()
	components := make([]string, len(t.Components))
	for i, c := range t.Components {
		components[i] = string(c)
	}
	var startUnix, endUnix sql.NullInt64
	if !t.StartTime.IsZero() {
		startUnix = sql.NullInt64{Int64: t.StartTime.Unix(), Valid: true}
	}
	if !t.EndTime.IsZero() {
		endUnix = sql.NullInt64{Int64: t.EndTime.Unix(), Valid: true}
	}
	id, name, stage, errCount := t.ID, t.Name, string(t.stage), len(t.Errors)
	t.mu.Unlock()

	_, err := a.db.ExecContext(ctx, `
INSERT INTO transactions (id, parent_id, name, stage, components, tags, start_time, end_time, duration_seconds, error_count, archived_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	stage=excluded.stage, components=excluded.components, tags=excluded.tags,
	start_time=excluded.start_time, end_time=excluded.end_time,
	duration_seconds=excluded.duration_seconds, error_count=excluded.error_count,
	archived_at=excluded.archived_at`,
		id, t.ParentID, name, stage, joinStrings(components), joinStrings(t.TagList()),
		startUnix, endUnix, t.Duration().Seconds(), errCount, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("txlog: archive save %s: %w", id, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

func joinStrings(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
