// Package history persists comparison reports in a local sqlite database so
// past diffs stay queryable across sessions.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/diff"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Report is one persisted comparison run.
type Report struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	OldModule string       `json:"old_module"`
	NewModule string       `json:"new_module"`
	OldPath   string       `json:"old_path"`
	NewPath   string       `json:"new_path"`
	Summary   diff.Summary `json:"summary"`

	// Changes is only populated by GetReport; listings carry the summary.
	Changes []diff.ApiChange `json:"changes,omitempty"`
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts when the server and a
	// one-shot CLI run share one database.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveReport persists one comparison run and returns its id. A missing id
// or timestamp is filled in.
func (s *Store) SaveReport(report Report) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	changesJSON, err := json.Marshal(report.Changes)
	if err != nil {
		return "", fmt.Errorf("encode report changes: %w", err)
	}

	query := `
INSERT INTO reports (
  id, created_at_utc, old_module, new_module, old_path, new_path,
  added_count, removed_count, modified_count, breaking_count, changes_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	err = s.withRetry("save report", func() error {
		_, execErr := s.db.Exec(
			query,
			report.ID,
			report.CreatedAt.UTC().Format(time.RFC3339Nano),
			report.OldModule,
			report.NewModule,
			report.OldPath,
			report.NewPath,
			report.Summary.Added,
			report.Summary.Removed,
			report.Summary.Modified,
			report.Summary.Breaking,
			string(changesJSON),
		)
		return execErr
	})
	if err != nil {
		return "", err
	}
	return report.ID, nil
}

// ListReports returns recent reports without their change lists, newest
// first. limit <= 0 means no limit.
func (s *Store) ListReports(limit int) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT id, created_at_utc, old_module, new_module, old_path, new_path,
       added_count, removed_count, modified_count, breaking_count
FROM reports
ORDER BY created_at_utc DESC, id DESC
`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("list reports", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]Report, 0)
	for rows.Next() {
		report, err := scanReport(rows, false)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return reports, nil
}

// GetReport loads one report with its full change list.
func (s *Store) GetReport(id string) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT id, created_at_utc, old_module, new_module, old_path, new_path,
       added_count, removed_count, modified_count, breaking_count, changes_json
FROM reports
WHERE id = ?
`
	var rows *sql.Rows
	err := s.withRetry("get report", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, id)
		return qErr
	})
	if err != nil {
		return Report{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Report{}, err
		}
		notFound := cerrors.Newf(cerrors.CodeNotFound, "no report with id %q", id)
		return Report{}, notFound
	}
	return scanReport(rows, true)
}

func scanReport(rows *sql.Rows, withChanges bool) (Report, error) {
	var (
		report      Report
		createdRaw  string
		changesJSON string
	)
	dest := []any{
		&report.ID,
		&createdRaw,
		&report.OldModule,
		&report.NewModule,
		&report.OldPath,
		&report.NewPath,
		&report.Summary.Added,
		&report.Summary.Removed,
		&report.Summary.Modified,
		&report.Summary.Breaking,
	}
	if withChanges {
		dest = append(dest, &changesJSON)
	}
	if err := rows.Scan(dest...); err != nil {
		return Report{}, fmt.Errorf("scan report row: %w", err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return Report{}, fmt.Errorf("parse report timestamp %q: %w", createdRaw, err)
	}
	report.CreatedAt = created.UTC()

	if withChanges && changesJSON != "" {
		if err := json.Unmarshal([]byte(changesJSON), &report.Changes); err != nil {
			return Report{}, fmt.Errorf("decode report changes: %w", err)
		}
	}
	return report, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
