package mashing

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 500
)

// Session is one recorded mashing run.
type Session struct {
	ID        string
	Name      string
	StartedAt time.Time
	EndedAt   time.Time
	Outcome   string
}

// RestEvent is one recorded rest state transition.
type RestEvent struct {
	ID          int64
	SessionID   string
	Rest        string
	State       string
	Temperature float64
	CreatedAt   time.Time
}

// SQLiteHistory implements RunRecorder on SQLite.
//
// It writes one sessions row per run and one rest_events row per state
// transition, and serves the query side for the remote control layer.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory creates a history store on an open connection. The
// schema must already be migrated.
func NewSQLiteHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{db: db}
}

// StartSession records the beginning of a run.
func (h *SQLiteHistory) StartSession(ctx context.Context, id, name string) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := h.db.ExecContext(ctx,
		"INSERT INTO sessions (id, name) VALUES (?, ?)",
		id, name,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// EndSession records how a run finished. Outcome is "completed" or
// "terminated".
func (h *SQLiteHistory) EndSession(ctx context.Context, id, outcome string) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := h.db.ExecContext(ctx,
		"UPDATE sessions SET ended_at = datetime('now'), outcome = ? WHERE id = ?",
		outcome, id,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	return nil
}

// RecordRestEvent records one rest state transition with the
// temperature at the time of the change.
func (h *SQLiteHistory) RecordRestEvent(ctx context.Context, sessionID, rest, state string, temperature float64) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := h.db.ExecContext(ctx,
		"INSERT INTO rest_events (session_id, rest_name, state, temperature) VALUES (?, ?, ?, ?)",
		sessionID, rest, state, temperature,
	)
	if err != nil {
		return fmt.Errorf("inserting rest event: %w", err)
	}
	return nil
}

// RecentSessions returns sessions ordered newest first.
func (h *SQLiteHistory) RecentSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, name, started_at, ended_at, outcome
		 FROM sessions
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]Session, 0, limit)
	for rows.Next() {
		var s Session
		var startedAt string
		var endedAt, outcome sql.NullString

		if err := rows.Scan(&s.ID, &s.Name, &startedAt, &endedAt, &outcome); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}

		if s.StartedAt, err = parseHistoryTime(startedAt); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			if s.EndedAt, err = parseHistoryTime(endedAt.String); err != nil {
				return nil, err
			}
		}
		s.Outcome = outcome.String

		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// RestEvents returns the recorded transitions of one session in the
// order they happened.
func (h *SQLiteHistory) RestEvents(ctx context.Context, sessionID string, limit int) ([]RestEvent, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, session_id, rest_name, state, temperature, created_at
		 FROM rest_events
		 WHERE session_id = ?
		 ORDER BY id ASC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying rest events: %w", err)
	}
	defer rows.Close()

	events := make([]RestEvent, 0, limit)
	for rows.Next() {
		var e RestEvent
		var createdAt string

		if err := rows.Scan(&e.ID, &e.SessionID, &e.Rest, &e.State, &e.Temperature, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning rest event: %w", err)
		}

		if e.CreatedAt, err = parseHistoryTime(createdAt); err != nil {
			return nil, err
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rest events: %w", err)
	}
	return events, nil
}

// parseHistoryTime parses SQLite datetime('now') text timestamps.
func parseHistoryTime(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing timestamp %q", value)
}
