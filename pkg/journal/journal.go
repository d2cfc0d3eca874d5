// Package journal keeps a history of backup, restore and rollback operations
// in a sqlite database.
package journal

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Kind string

const (
	KindCreate   Kind = "create"
	KindRestore  Kind = "restore"
	KindRollback Kind = "rollback"
)

// Record is one journaled operation.
type Record struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	Archive      string     `json:"archive"`
	Status       Status     `json:"status"`
	Started      time.Time  `json:"started"`
	Finished     *time.Time `json:"finished"` // nil while in progress
	ErrorMessage string     `json:"errorMessage"`
}

var ErrNotFound = errors.New("journal record not found")

const schema = `CREATE TABLE IF NOT EXISTS operations (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	archive TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	started TEXT NOT NULL,
	finished TEXT,
	error TEXT NOT NULL DEFAULT ''
)`

// timeLayout is fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path. ":memory:" gives a throwaway
// journal.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// an in-memory database only exists on the connection that created it
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Begin records the start of an operation.
func (j *Journal) Begin(kind Kind, archive string) (*Record, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate operation id: %w", err)
	}

	rec := &Record{
		ID:      fmt.Sprintf("%x", b),
		Kind:    kind,
		Archive: archive,
		Status:  StatusInProgress,
		Started: j.now().UTC(),
	}
	_, err := j.db.Exec(
		`INSERT INTO operations (id, kind, archive, status, started) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.Archive, string(rec.Status), formatTime(rec.Started),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record %s operation: %w", kind, err)
	}
	return rec, nil
}

// Finish marks rec completed, or failed when opErr is non-nil. rec.Archive is
// stored as well since some operations only learn it once they are done.
func (j *Journal) Finish(rec *Record, opErr error) error {
	finished := j.now().UTC()
	rec.Finished = &finished
	rec.Status = StatusCompleted
	rec.ErrorMessage = ""
	if opErr != nil {
		rec.Status = StatusFailed
		rec.ErrorMessage = opErr.Error()
	}

	res, err := j.db.Exec(
		`UPDATE operations SET archive = ?, status = ?, finished = ?, error = ? WHERE id = ?`,
		rec.Archive, string(rec.Status), formatTime(finished), rec.ErrorMessage, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish operation %s: %w", rec.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("operation %s: %w", rec.ID, ErrNotFound)
	}
	return nil
}

func (j *Journal) Get(id string) (*Record, error) {
	row := j.db.QueryRow(`SELECT id, kind, archive, status, started, finished, error FROM operations WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// List returns up to limit records, newest first. A limit of zero or less
// returns everything.
func (j *Journal) List(limit int) ([]Record, error) {
	query := `SELECT id, kind, archive, status, started, finished, error FROM operations ORDER BY started DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec      Record
		kind     string
		status   string
		started  string
		finished sql.NullString
	)
	if err := s.Scan(&rec.ID, &kind, &rec.Archive, &status, &started, &finished, &rec.ErrorMessage); err != nil {
		return nil, err
	}
	rec.Kind = Kind(kind)
	rec.Status = Status(status)

	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("operation %s has a bad start time: %w", rec.ID, err)
	}
	rec.Started = t
	if finished.Valid {
		f, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("operation %s has a bad finish time: %w", rec.ID, err)
		}
		rec.Finished = &f
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
