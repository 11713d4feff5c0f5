// Package journal keeps a persistent history of discovery scans and manual
// registrations in SQLite.
//
// The mapping cache only ever holds the latest scan. The journal answers
// "when did this conflict first appear" and "who pointed task:todo
// somewhere else" after the cache has moved on. It is an optional
// collaborator: the resolver works without it.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/HendryAvila/linkmap/internal/address"
	"github.com/HendryAvila/linkmap/internal/mapping"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ─── Types ───────────────────────────────────────────────────────────────────

// ScanRun is one completed discovery scan.
type ScanRun struct {
	ID        string             `json:"id"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration_ns"`
	Forced    bool               `json:"forced"`
	Mappings  int                `json:"mappings"`
	Conflicts []mapping.Conflict `json:"conflicts,omitempty"`
	Warnings  []mapping.Warning  `json:"warnings,omitempty"`
}

// ScanSummary is a compact view of a scan run with diagnostic counts.
type ScanSummary struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	DurationM int64     `json:"duration_ms"`
	Forced    bool      `json:"forced"`
	Mappings  int       `json:"mappings"`
	Conflicts int       `json:"conflicts"`
	Warnings  int       `json:"warnings"`
}

// Registration is one manual register_mapping call.
type Registration struct {
	ID           int64                `json:"id"`
	DocumentType address.DocumentType `json:"document_type"`
	LogicalID    string               `json:"logical_id"`
	PhysicalPath string               `json:"physical_path"`
	PreviousPath string               `json:"previous_path,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds journal configuration.
type Config struct {
	DataDir string
	// MaxRuns bounds the number of scan runs kept; older runs and their
	// diagnostics are pruned. Zero keeps everything.
	MaxRuns int
}

// DefaultConfig returns the default configuration rooted at dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{DataDir: dataDir, MaxRuns: 200}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed journal.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (creating if needed) the journal database in cfg.DataDir.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "journal.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	// One connection keeps the per-connection pragmas in force.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS scan_runs (
			id          TEXT PRIMARY KEY,
			started_at  TEXT    NOT NULL,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			forced      INTEGER NOT NULL DEFAULT 0,
			mappings    INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS scan_conflicts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL,
			document_type TEXT NOT NULL,
			logical_id    TEXT NOT NULL,
			kept_path     TEXT NOT NULL,
			shadowed_path TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES scan_runs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_conflicts_run ON scan_conflicts(run_id);

		CREATE TABLE IF NOT EXISTS scan_warnings (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  TEXT NOT NULL,
			kind    TEXT NOT NULL,
			path    TEXT NOT NULL,
			message TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES scan_runs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_warnings_run ON scan_warnings(run_id);

		CREATE TABLE IF NOT EXISTS registrations (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			document_type TEXT NOT NULL,
			logical_id    TEXT NOT NULL,
			physical_path TEXT NOT NULL,
			previous_path TEXT,
			created_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_reg_key ON registrations(document_type, logical_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Scan runs ───────────────────────────────────────────────────────────────

// RecordScan stores a scan run with its conflicts and warnings and returns
// the run id (generated when empty). Runs beyond MaxRuns are pruned.
func (s *Store) RecordScan(run ScanRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = timeNow()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("journal: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO scan_runs (id, started_at, duration_ns, forced, mappings) VALUES (?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), int64(run.Duration), boolInt(run.Forced), run.Mappings,
	); err != nil {
		return "", fmt.Errorf("journal: insert run: %w", err)
	}

	for _, c := range run.Conflicts {
		if _, err := tx.Exec(
			`INSERT INTO scan_conflicts (run_id, document_type, logical_id, kept_path, shadowed_path) VALUES (?, ?, ?, ?, ?)`,
			run.ID, string(c.DocumentType), c.LogicalID, c.KeptPath, c.ShadowedPath,
		); err != nil {
			return "", fmt.Errorf("journal: insert conflict: %w", err)
		}
	}
	for _, w := range run.Warnings {
		if _, err := tx.Exec(
			`INSERT INTO scan_warnings (run_id, kind, path, message) VALUES (?, ?, ?, ?)`,
			run.ID, string(w.Kind), w.Path, w.Message,
		); err != nil {
			return "", fmt.Errorf("journal: insert warning: %w", err)
		}
	}

	if s.cfg.MaxRuns > 0 {
		if _, err := tx.Exec(
			`DELETE FROM scan_runs WHERE id NOT IN (
				SELECT id FROM scan_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
			)`,
			s.cfg.MaxRuns,
		); err != nil {
			return "", fmt.Errorf("journal: prune runs: %w", err)
		}
		for _, table := range []string{"scan_conflicts", "scan_warnings"} {
			if _, err := tx.Exec(`DELETE FROM ` + table + ` WHERE run_id NOT IN (SELECT id FROM scan_runs)`); err != nil {
				return "", fmt.Errorf("journal: prune %s: %w", table, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("journal: commit: %w", err)
	}
	return run.ID, nil
}

// RecentScans returns the newest scan runs first.
func (s *Store) RecentScans(limit int) ([]ScanSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT r.id, r.started_at, r.duration_ns, r.forced, r.mappings,
		        (SELECT COUNT(*) FROM scan_conflicts c WHERE c.run_id = r.id),
		        (SELECT COUNT(*) FROM scan_warnings w WHERE w.run_id = r.id)
		 FROM scan_runs r
		 ORDER BY r.started_at DESC, r.rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ScanSummary
	for rows.Next() {
		var (
			sum      ScanSummary
			started  string
			duration int64
			forced   int
		)
		if err := rows.Scan(&sum.ID, &started, &duration, &forced, &sum.Mappings, &sum.Conflicts, &sum.Warnings); err != nil {
			return nil, fmt.Errorf("journal: scan run row: %w", err)
		}
		sum.StartedAt = parseTime(started)
		sum.DurationM = time.Duration(duration).Milliseconds()
		sum.Forced = forced != 0
		out = append(out, sum)
	}
	return out, rows.Err()
}

// RunConflicts returns the conflicts recorded for one scan run.
func (s *Store) RunConflicts(runID string) ([]mapping.Conflict, error) {
	rows, err := s.db.Query(
		`SELECT document_type, logical_id, kept_path, shadowed_path
		 FROM scan_conflicts WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: query conflicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []mapping.Conflict
	for rows.Next() {
		var c mapping.Conflict
		var typ string
		if err := rows.Scan(&typ, &c.LogicalID, &c.KeptPath, &c.ShadowedPath); err != nil {
			return nil, fmt.Errorf("journal: scan conflict row: %w", err)
		}
		c.DocumentType = address.DocumentType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ─── Registrations ───────────────────────────────────────────────────────────

// RecordRegistration stores a manual registration and returns its id.
func (s *Store) RecordRegistration(reg Registration) (int64, error) {
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = timeNow()
	}
	res, err := s.db.Exec(
		`INSERT INTO registrations (document_type, logical_id, physical_path, previous_path, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(reg.DocumentType), reg.LogicalID, reg.PhysicalPath, nullableString(reg.PreviousPath), formatTime(reg.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("journal: insert registration: %w", err)
	}
	return res.LastInsertId()
}

// RecentRegistrations returns the newest manual registrations first.
func (s *Store) RecentRegistrations(limit int) ([]Registration, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT id, document_type, logical_id, physical_path, ifnull(previous_path, ''), created_at
		 FROM registrations ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: query registrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Registration
	for rows.Next() {
		var r Registration
		var typ, created string
		if err := rows.Scan(&r.ID, &typ, &r.LogicalID, &r.PhysicalPath, &r.PreviousPath, &created); err != nil {
			return nil, fmt.Errorf("journal: scan registration row: %w", err)
		}
		r.DocumentType = address.DocumentType(typ)
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
