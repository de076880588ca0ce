// Package history keeps a per-iteration log of optimization runs in SQLite,
// so the convergence of every run can be queried after the fact.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/san-kum/krotov/internal/pulse"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	functional TEXT NOT NULL,
	started    INTEGER NOT NULL,
	finished   INTEGER,
	iterations INTEGER NOT NULL DEFAULT 0,
	value      REAL,
	reason     TEXT
);
CREATE TABLE IF NOT EXISTS iterations (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	iteration    INTEGER NOT NULL,
	value        REAL NOT NULL,
	delta        REAL NOT NULL,
	total        REAL NOT NULL,
	propagations INTEGER NOT NULL,
	elapsed_ns   INTEGER NOT NULL,
	pulses       BLOB,
	PRIMARY KEY (run_id, iteration)
);
`

type DB struct {
	conn *sql.DB
	path string
}

// Open creates the database file and its directory if needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("history: create directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Path() string { return db.path }

type Run struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Functional string    `json:"functional"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	Iterations int       `json:"iterations"`
	Value      float64   `json:"value"`
	Reason     string    `json:"reason"`
}

type Row struct {
	Iteration    int           `json:"iteration"`
	Value        float64       `json:"value"`
	Delta        float64       `json:"delta"`
	Total        float64       `json:"total"`
	Propagations int64         `json:"propagations"`
	Elapsed      time.Duration `json:"elapsed"`
	Pulses       pulse.Table   `json:"pulses,omitempty"`
}

func (db *DB) BeginRun(run Run) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, model, functional, started) VALUES (?, ?, ?, ?)`,
		run.ID, run.Model, run.Functional, run.Started.UnixNano())
	if err != nil {
		return fmt.Errorf("history: begin run %s: %w", run.ID, err)
	}
	return nil
}

func (db *DB) FinishRun(id string, iterations int, value float64, reason string, at time.Time) error {
	_, err := db.conn.Exec(
		`UPDATE runs SET finished = ?, iterations = ?, value = ?, reason = ? WHERE id = ?`,
		at.UnixNano(), iterations, value, reason, id)
	if err != nil {
		return fmt.Errorf("history: finish run %s: %w", id, err)
	}
	return nil
}

// Insert stores one row. Re-inserting an iteration replaces it, which is what
// a resumed run writing into the same run id needs.
func (db *DB) Insert(runID string, row Row) error {
	var blob []byte
	if row.Pulses != nil {
		b, err := msgpack.Marshal(map[string][]float64(row.Pulses))
		if err != nil {
			return fmt.Errorf("history: encode pulses: %w", err)
		}
		blob = b
	}
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO iterations
			(run_id, iteration, value, delta, total, propagations, elapsed_ns, pulses)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, row.Iteration, row.Value, row.Delta, row.Total, row.Propagations, int64(row.Elapsed), blob)
	if err != nil {
		return fmt.Errorf("history: insert %s/%d: %w", runID, row.Iteration, err)
	}
	return nil
}

// Rows returns the rows of a run ordered by iteration.
func (db *DB) Rows(runID string) ([]Row, error) {
	rows, err := db.conn.Query(
		`SELECT iteration, value, delta, total, propagations, elapsed_ns, pulses
			FROM iterations WHERE run_id = ? ORDER BY iteration`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: query %s: %w", runID, err)
	}
	defer rows.Close()

	out := make([]Row, 0)
	for rows.Next() {
		var r Row
		var elapsed int64
		var blob []byte
		if err := rows.Scan(&r.Iteration, &r.Value, &r.Delta, &r.Total, &r.Propagations, &elapsed, &blob); err != nil {
			return nil, fmt.Errorf("history: scan %s: %w", runID, err)
		}
		r.Elapsed = time.Duration(elapsed)
		if len(blob) > 0 {
			var t map[string][]float64
			if err := msgpack.Unmarshal(blob, &t); err != nil {
				return nil, fmt.Errorf("history: decode pulses of %s/%d: %w", runID, r.Iteration, err)
			}
			r.Pulses = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs lists all recorded runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, model, functional, started, finished, iterations, value, reason
			FROM runs ORDER BY started DESC`)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	out := make([]Run, 0)
	for rows.Next() {
		var r Run
		var started int64
		var finished sql.NullInt64
		var value sql.NullFloat64
		var reason sql.NullString
		if err := rows.Scan(&r.ID, &r.Model, &r.Functional, &started, &finished, &r.Iterations, &value, &reason); err != nil {
			return nil, fmt.Errorf("history: scan runs: %w", err)
		}
		r.Started = time.Unix(0, started)
		if finished.Valid {
			r.Finished = time.Unix(0, finished.Int64)
		}
		r.Value = value.Float64
		r.Reason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}
