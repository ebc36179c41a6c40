// Package sqlite provides a SQLite-backed ports.StateStore.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS dialogue_sessions (
	session_id      TEXT PRIMARY KEY,
	persona         TEXT NOT NULL DEFAULT '',
	current_context TEXT NOT NULL,
	state           TEXT NOT NULL,
	updated_at      INTEGER NOT NULL
);`

// Store persists dialogue states in SQLite, one JSON row per session.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
// ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save upserts the session row.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.DialogueState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO dialogue_sessions (session_id, persona, current_context, state, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   persona = excluded.persona,
		   current_context = excluded.current_context,
		   state = excluded.state,
		   updated_at = excluded.updated_at`,
		sessionID, state.ActivePersona, state.CurrentContext, string(data), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// Load reads the session row.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.DialogueState, error) {
	var raw string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT state FROM dialogue_sessions WHERE session_id = ?`, sessionID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var state domain.DialogueState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	state.Normalize()
	return &state, nil
}

// Delete removes the session row.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM dialogue_sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// List returns session ids in id order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT session_id FROM dialogue_sessions ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
