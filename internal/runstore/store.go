// Package runstore persists coordination run snapshots to SQLite so a
// restarted process can show the history of past runs. The engine stays
// authoritative; snapshots are write-behind and never read back into a live
// run.
package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    owner TEXT NOT NULL,
    repo TEXT NOT NULL,
    pr_number INTEGER NOT NULL,
    head_sha TEXT NOT NULL,
    seq INTEGER NOT NULL DEFAULT 0,
    state TEXT NOT NULL,
    saved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_snapshots_run_id ON run_snapshots(run_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_pr ON run_snapshots(owner, repo, pr_number);
`

// Store provides SQLite-backed snapshot persistence
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot appends one snapshot of the run state
func (s *Store) SaveSnapshot(state *domain.CoordinationState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO run_snapshots (run_id, owner, repo, pr_number, head_sha, seq, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		state.RunID, state.Identity.Owner, state.Identity.Repo,
		state.PRNumber, state.HeadSHA, state.Seq, string(blob),
	)
	return err
}

// LoadLatest returns the most recent snapshot for a PR, or nil when none
// exists. Snapshots are ordered by the engine's mutation sequence, not by
// insertion order, because concurrent writes can land out of order
func (s *Store) LoadLatest(id domain.Identity, prNumber int) (*domain.CoordinationState, error) {
	var blob string
	err := s.db.QueryRow(`
		SELECT state FROM run_snapshots
		WHERE owner = ? AND repo = ? AND pr_number = ?
		ORDER BY seq DESC, id DESC LIMIT 1`,
		id.Owner, id.Repo, prNumber,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state domain.CoordinationState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &state, nil
}

// ListRuns returns the run IDs recorded for a PR, newest first
func (s *Store) ListRuns(id domain.Identity, prNumber int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT run_id FROM run_snapshots
		WHERE owner = ? AND repo = ? AND pr_number = ?
		GROUP BY run_id
		ORDER BY MAX(seq) DESC, MAX(id) DESC`,
		id.Owner, id.Repo, prNumber,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var runID string
		if err := rows.Scan(&runID); err != nil {
			return nil, err
		}
		runs = append(runs, runID)
	}
	return runs, rows.Err()
}

// Prune deletes snapshots older than the retention window
func (s *Store) Prune(retention time.Duration) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM run_snapshots WHERE saved_at < ?`,
		time.Now().Add(-retention).UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
