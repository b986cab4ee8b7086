// Package generate drives the external synthesis service over the ordered
// snippets: a bounded worker pool with rate limiting, bounded retry with
// exponential backoff, and incremental checkpointing of results so an
// interrupted run resumes without re-paying for completed work.
package generate

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Masterminds/semver/v3"
	"github.com/docweaver/docweaver/internal/artifact"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Result is the outcome of synthesis for one snippet.
type Result struct {
	ID          string
	Status      string
	Text        string
	Attempts    int
	ErrorDetail string
	UpdatedAt   time.Time
}

// ResultStore is the SQLite-backed checkpoint for generation results.
// Successful results are append-only: a later write for the same ID never
// replaces a stored success. Writes are serialized through a single mutex;
// reads for resumption happen before workers start.
type ResultStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenResultStore opens (or creates) the results database at dbPath and
// ensures the schema exists. A database written by an incompatible schema
// version is reported as a corrupt artifact. Use ":memory:" for tests.
func OpenResultStore(dbPath, runID string) (*ResultStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	if err := checkSchema(db, dbPath, runID); err != nil {
		db.Close()
		return nil, err
	}

	return &ResultStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id           TEXT PRIMARY KEY,
			status       TEXT NOT NULL,
			text         TEXT NOT NULL DEFAULT '',
			attempts     INTEGER NOT NULL DEFAULT 0,
			error_detail TEXT NOT NULL DEFAULT '',
			updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// checkSchema verifies the stored schema version is compatible and stamps the
// version and run ID on first use.
func checkSchema(db *sql.DB, dbPath, runID string) error {
	var stored string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&stored)
	if err == sql.ErrNoRows {
		_, err = db.Exec(
			`INSERT INTO meta (key, value) VALUES ('schema_version', ?), ('run_id', ?)`,
			artifact.SchemaVersion, runID,
		)
		if err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return &artifact.CorruptError{Path: dbPath, Reason: "reading schema version", Err: err}
	}

	have, err := semver.NewVersion(stored)
	if err != nil {
		return &artifact.CorruptError{Path: dbPath, Reason: "schema version", Err: err}
	}
	current := semver.MustParse(artifact.SchemaVersion)
	if have.Major() != current.Major() || have.GreaterThan(current) {
		return &artifact.CorruptError{
			Path:   dbPath,
			Reason: fmt.Sprintf("schema version %s is incompatible with %s", stored, artifact.SchemaVersion),
		}
	}
	return nil
}

// Save writes a result. A stored success is never replaced; any other stored
// status is updated in place.
func (s *ResultStore) Save(r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO results (id, status, text, attempts, error_detail, updated_at)
		 VALUES (?, ?, ?, ?, ?, datetime('now'))
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			text = excluded.text,
			attempts = excluded.attempts,
			error_detail = excluded.error_detail,
			updated_at = excluded.updated_at
		 WHERE results.status != 'success'`,
		r.ID, r.Status, r.Text, r.Attempts, r.ErrorDetail,
	)
	if err != nil {
		return fmt.Errorf("save result %s: %w", r.ID, err)
	}
	return nil
}

// Get retrieves the result for an ID. Returns nil if none is stored.
func (s *ResultStore) Get(id string) (*Result, error) {
	var r Result
	err := s.db.QueryRow(
		`SELECT id, status, text, attempts, error_detail, updated_at
		 FROM results WHERE id = ?`, id,
	).Scan(&r.ID, &r.Status, &r.Text, &r.Attempts, &r.ErrorDetail, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", id, err)
	}
	return &r, nil
}

// All returns every stored result keyed by ID.
func (s *ResultStore) All() (map[string]Result, error) {
	rows, err := s.db.Query(
		`SELECT id, status, text, attempts, error_detail, updated_at FROM results`,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := make(map[string]Result)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Status, &r.Text, &r.Attempts, &r.ErrorDetail, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results[r.ID] = r
	}
	return results, rows.Err()
}

// Succeeded returns the set of IDs with a stored success, read once at stage
// start so resumption skips them.
func (s *ResultStore) Succeeded() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT id FROM results WHERE status = 'success'`)
	if err != nil {
		return nil, fmt.Errorf("list succeeded: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		done[id] = true
	}
	return done, rows.Err()
}
