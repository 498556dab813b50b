// Package sqlite stores evaluation results in a SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/recalc/pkg/adapters/sqlite/migrations"
	"github.com/aretw0/recalc/pkg/domain"
	_ "modernc.org/sqlite"
)

// Store implements ports.ResultStore on SQLite. Each result is one row keyed
// by session ID with the JSON document in the payload column.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) and migrates the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: storage path is required", domain.ErrInvalidArgument)
	}

	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o755); err != nil {
		return nil, fmt.Errorf("ensure storage directory: %w", err)
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the result.
func (s *Store) Save(ctx context.Context, result *domain.EvaluationResult) error {
	if result == nil || strings.TrimSpace(result.SessionID) == "" {
		return fmt.Errorf("%w: result missing session ID", domain.ErrInvalidArgument)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (session_id, workbook_id, payload, created_at, saved_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   workbook_id = excluded.workbook_id,
		   payload = excluded.payload,
		   created_at = excluded.created_at,
		   saved_at = excluded.saved_at`,
		result.SessionID,
		result.WorkbookID,
		string(payload),
		result.CreatedAt.UTC().UnixMilli(),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save result %s: %w", result.SessionID, err)
	}
	return nil
}

// Load reads a result back.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.EvaluationResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM results WHERE session_id = ?`, sessionID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrResultNotFound, sessionID)
		}
		return nil, fmt.Errorf("load result %s: %w", sessionID, err)
	}

	var result domain.EvaluationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result %s: %w", sessionID, err)
	}
	return &result, nil
}

// Delete removes a result.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete result %s: %w", sessionID, err)
	}
	return nil
}

// List returns the stored session IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.query(ctx, `SELECT session_id FROM results ORDER BY session_id`)
}

// ListByWorkbook returns the session IDs of results produced by one workbook.
func (s *Store) ListByWorkbook(ctx context.Context, workbookID string) ([]string, error) {
	return s.query(ctx, `SELECT session_id FROM results WHERE workbook_id = ? ORDER BY session_id`, workbookID)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan result id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return ids, nil
}
