/*
Package sqlite provides the SQLite-backed implementation of schedule.Store.

PURPOSE:
  Persists events and instances in one embedded database per user:
  <dataDir>/<userID>/schedule.db. The per-user file IS the storage
  namespace, which makes isolation, backup, and raw export trivial.

INTERFACES IMPLEMENTED:
  schedule.Store: Event/instance CRUD, range queries, chunk appends

KEY TABLES (per user database):
  events:    One row per event (repeat rule serialized as JSON)
  instances: One row per concrete occurrence, FK to events

TRI-STATE CONTINUE COLUMN:
  cont INTEGER: NULL = not applicable, 1 = continue generating,
  0 = explicit stop. Only the chronologically-last instance of an
  open-ended series meaningfully carries 1.

ATOMICITY:
  Every multi-row write (create, cascade delete, chunk append) runs in
  a database transaction: BeginTx + defer Rollback + Commit. Partial
  application is never observable.

WAL MODE:
  Databases are opened with WAL for better crash recovery. ExportRaw
  checkpoints the WAL first so the snapshot file is self-contained.

USAGE:
  store, err := sqlite.New("./userdata")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  engine := schedule.NewScheduler(store)

SEE ALSO:
  - schedule/store.go: Interface definition
  - schedule/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/VJyzCELERY/Intellecta/schedule"
)

// Store manages one SQLite database per user under a data directory.
type Store struct {
	dir string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// New creates a store rooted at the given data directory, creating it
// if needed. User databases are opened lazily on first access.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir, dbs: make(map[string]*sql.DB)}, nil
}

// Close closes all open user databases.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for userID, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.dbs, userID)
	}
	return firstErr
}

func (s *Store) dbPath(userID string) (string, error) {
	// User IDs become directory names; refuse anything that could
	// escape the data root.
	if userID == "" || strings.ContainsAny(userID, `/\`) || userID == "." || userID == ".." {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return filepath.Join(s.dir, userID, "schedule.db"), nil
}

// forUser returns the user's database, opening and migrating it on
// first use.
func (s *Store) forUser(userID string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[userID]; ok {
		return db, nil
	}

	path, err := s.dbPath(userID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create user directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s.dbs[userID] = db
	return db, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		event_id    TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		repeat_json TEXT
	);

	CREATE TABLE IF NOT EXISTS instances (
		event_id TEXT NOT NULL REFERENCES events(event_id) ON DELETE CASCADE,
		start_at TEXT NOT NULL,
		end_at   TEXT NOT NULL,
		cont     INTEGER DEFAULT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_instances_event_start
		ON instances(event_id, start_at);

	-- Upcoming queries filter on end_at, month queries on both bounds
	CREATE INDEX IF NOT EXISTS idx_instances_start ON instances(start_at);
	CREATE INDEX IF NOT EXISTS idx_instances_end ON instances(end_at);
	`
	_, err := db.Exec(schema)
	return err
}

// =============================================================================
// TIME AND FLAG ENCODING
// =============================================================================

// Timestamps are stored as RFC3339 UTC strings, which sort
// lexicographically in chronological order.
func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func encodeFlag(f schedule.ContinueFlag) any {
	switch f {
	case schedule.FlagContinue:
		return 1
	case schedule.FlagTerminal:
		return 0
	}
	return nil
}

func decodeFlag(v sql.NullInt64) schedule.ContinueFlag {
	if !v.Valid {
		return schedule.FlagNotApplicable
	}
	if v.Int64 == 1 {
		return schedule.FlagContinue
	}
	return schedule.FlagTerminal
}

// =============================================================================
// EVENT CRUD
// =============================================================================

// CreateEvent persists the event row and all instance rows atomically.
func (s *Store) CreateEvent(ctx context.Context, userID string, ev schedule.Event, instances []schedule.Instance) error {
	db, err := s.forUser(userID)
	if err != nil {
		return err
	}

	repeatJSON, err := schedule.MarshalRule(ev.Repeat)
	if err != nil {
		return fmt.Errorf("failed to serialize repeat rule: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (event_id, title, description, repeat_json) VALUES (?, ?, ?, ?)`,
		ev.ID, ev.Title, ev.Description, nullString(repeatJSON),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return schedule.ErrEventExists
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if err := insertInstances(ctx, tx, ev.ID, instances); err != nil {
		return err
	}
	return tx.Commit()
}

func insertInstances(ctx context.Context, tx *sql.Tx, eventID string, instances []schedule.Instance) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO instances (event_id, start_at, end_at, cont) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare instance insert: %w", err)
	}
	defer stmt.Close()

	for _, inst := range instances {
		if _, err := stmt.ExecContext(ctx,
			eventID, encodeTime(inst.Start), encodeTime(inst.End), encodeFlag(inst.Continue),
		); err != nil {
			return fmt.Errorf("failed to insert instance: %w", err)
		}
	}
	return nil
}

// GetEvent returns the event, or nil if it does not exist.
func (s *Store) GetEvent(ctx context.Context, userID, eventID string) (*schedule.Event, error) {
	db, err := s.forUser(userID)
	if err != nil {
		return nil, err
	}

	var ev schedule.Event
	var repeatJSON sql.NullString
	err = db.QueryRowContext(ctx,
		`SELECT event_id, title, description, repeat_json FROM events WHERE event_id = ?`,
		eventID,
	).Scan(&ev.ID, &ev.Title, &ev.Description, &repeatJSON)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	ev.Repeat, err = schedule.UnmarshalRule(repeatJSON.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored repeat rule: %w", err)
	}
	return &ev, nil
}

// =============================================================================
// INSTANCE QUERIES
// =============================================================================

const joinedColumns = `
	e.event_id, e.title, e.description, e.repeat_json,
	d.start_at, d.end_at, d.cont
`

// InstancesFrom returns up to limit instances ending at or after from,
// ascending by start.
func (s *Store) InstancesFrom(ctx context.Context, userID string, from time.Time, limit int) ([]schedule.EventInstance, error) {
	db, err := s.forUser(userID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + joinedColumns + `
		FROM instances d
		JOIN events e ON d.event_id = e.event_id
		WHERE d.end_at >= ?
		ORDER BY d.start_at ASC, d.event_id ASC
		LIMIT ?
	`
	return queryInstances(ctx, db, query, encodeTime(from), limit)
}

// InstancesInRange returns all instances overlapping [from, to).
func (s *Store) InstancesInRange(ctx context.Context, userID string, from, to time.Time) ([]schedule.EventInstance, error) {
	db, err := s.forUser(userID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + joinedColumns + `
		FROM instances d
		JOIN events e ON d.event_id = e.event_id
		WHERE d.start_at < ? AND d.end_at >= ?
		ORDER BY d.start_at ASC, d.event_id ASC
	`
	return queryInstances(ctx, db, query, encodeTime(to), encodeTime(from))
}

func queryInstances(ctx context.Context, db *sql.DB, query string, args ...any) ([]schedule.EventInstance, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	defer rows.Close()

	var result []schedule.EventInstance
	for rows.Next() {
		row, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanInstance(rows *sql.Rows) (schedule.EventInstance, error) {
	var (
		row        schedule.EventInstance
		repeatJSON sql.NullString
		startAt    string
		endAt      string
		cont       sql.NullInt64
	)

	if err := rows.Scan(&row.EventID, &row.Title, &row.Description, &repeatJSON,
		&startAt, &endAt, &cont); err != nil {
		return row, fmt.Errorf("failed to scan instance: %w", err)
	}

	var err error
	if row.Repeat, err = schedule.UnmarshalRule(repeatJSON.String); err != nil {
		return row, fmt.Errorf("failed to parse stored repeat rule: %w", err)
	}
	if row.Start, err = decodeTime(startAt); err != nil {
		return row, err
	}
	if row.End, err = decodeTime(endAt); err != nil {
		return row, err
	}
	row.Continue = decodeFlag(cont)
	return row, nil
}

// LastInstance returns the event's instance with the maximum start.
func (s *Store) LastInstance(ctx context.Context, userID, eventID string) (*schedule.Instance, error) {
	db, err := s.forUser(userID)
	if err != nil {
		return nil, err
	}

	var (
		startAt string
		endAt   string
		cont    sql.NullInt64
	)
	err = db.QueryRowContext(ctx, `
		SELECT start_at, end_at, cont FROM instances
		WHERE event_id = ?
		ORDER BY start_at DESC
		LIMIT 1
	`, eventID).Scan(&startAt, &endAt, &cont)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last instance: %w", err)
	}

	inst := schedule.Instance{Continue: decodeFlag(cont)}
	if inst.Start, err = decodeTime(startAt); err != nil {
		return nil, err
	}
	if inst.End, err = decodeTime(endAt); err != nil {
		return nil, err
	}
	return &inst, nil
}

// CountInstances returns the event's total instance count.
func (s *Store) CountInstances(ctx context.Context, userID, eventID string) (int, error) {
	db, err := s.forUser(userID)
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM instances WHERE event_id = ?`, eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count instances: %w", err)
	}
	return count, nil
}

// CountInstancesFrom returns how many instances have start >= from.
func (s *Store) CountInstancesFrom(ctx context.Context, userID, eventID string, from time.Time) (int, error) {
	db, err := s.forUser(userID)
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM instances WHERE event_id = ? AND start_at >= ?`,
		eventID, encodeTime(from),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count instances: %w", err)
	}
	return count, nil
}

// =============================================================================
// WRITES
// =============================================================================

// AppendInstances inserts a new chunk for an existing event, clearing
// any prior continue marker in the same transaction.
func (s *Store) AppendInstances(ctx context.Context, userID, eventID string, instances []schedule.Instance) error {
	db, err := s.forUser(userID)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE event_id = ?`, eventID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if exists == 0 {
		return schedule.ErrEventNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE instances SET cont = NULL WHERE event_id = ? AND cont = 1`, eventID,
	); err != nil {
		return fmt.Errorf("failed to clear continue marker: %w", err)
	}

	if err := insertInstances(ctx, tx, eventID, instances); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteEvent removes the event and all its instances atomically.
func (s *Store) DeleteEvent(ctx context.Context, userID, eventID string) error {
	db, err := s.forUser(userID)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM instances WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("failed to delete instances: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return tx.Commit()
}

// DeleteInstance removes the one instance matching the exact start.
func (s *Store) DeleteInstance(ctx context.Context, userID, eventID string, start time.Time) error {
	db, err := s.forUser(userID)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`DELETE FROM instances WHERE event_id = ? AND start_at = ?`,
		eventID, encodeTime(start),
	)
	if err != nil {
		return fmt.Errorf("failed to delete instance: %w", err)
	}
	return nil
}

// DeleteInstancesFrom removes all instances with start >= from.
func (s *Store) DeleteInstancesFrom(ctx context.Context, userID, eventID string, from time.Time) error {
	db, err := s.forUser(userID)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`DELETE FROM instances WHERE event_id = ? AND start_at >= ?`,
		eventID, encodeTime(from),
	)
	if err != nil {
		return fmt.Errorf("failed to delete instances: %w", err)
	}
	return nil
}

// SetContinueFlag updates the continue marker on one instance.
func (s *Store) SetContinueFlag(ctx context.Context, userID, eventID string, start time.Time, flag schedule.ContinueFlag) error {
	db, err := s.forUser(userID)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`UPDATE instances SET cont = ? WHERE event_id = ? AND start_at = ?`,
		encodeFlag(flag), eventID, encodeTime(start),
	)
	if err != nil {
		return fmt.Errorf("failed to update continue flag: %w", err)
	}
	return nil
}

// =============================================================================
// RAW EXPORT
// =============================================================================

// ExportRaw returns the raw bytes of the user's database file, or nil
// if the user has no database yet. The WAL is checkpointed first so
// the file alone is a complete snapshot.
func (s *Store) ExportRaw(ctx context.Context, userID string) ([]byte, error) {
	path, err := s.dbPath(userID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := s.forUser(userID)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return nil, fmt.Errorf("failed to checkpoint database: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read database file: %w", err)
	}
	return data, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
