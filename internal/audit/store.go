// Package audit persists tool executions and agent turns to a local
// SQLite database for later inspection.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the audit database handle. A nil *Store is safe to use:
// every method is a no-op, so callers can run without auditing.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordExecution appends one tool execution record.
func (s *Store) RecordExecution(e *Execution) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO tool_executions
			(session_id, turn_id, tool, category, arguments, outcome, failure_kind,
			 result_preview, confirmed, confirm_reason, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.TurnID, e.Tool, e.Category, e.Arguments, e.Outcome,
		e.FailureKind, e.ResultPreview, e.Confirmed, e.ConfirmReason, e.DurationMS,
	)
	return err
}

// ListExecutions returns the most recent executions for a session,
// newest first. An empty sessionID returns executions for all sessions.
func (s *Store) ListExecutions(sessionID string, limit int) ([]Execution, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, COALESCE(turn_id, ''), tool, category,
		       COALESCE(arguments, ''), outcome, COALESCE(failure_kind, ''),
		       COALESCE(result_preview, ''), confirmed, COALESCE(confirm_reason, ''),
		       duration_ms, created_at
		FROM tool_executions`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.SessionID, &e.TurnID, &e.Tool, &e.Category,
			&e.Arguments, &e.Outcome, &e.FailureKind, &e.ResultPreview,
			&e.Confirmed, &e.ConfirmReason, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// BeginTurn records the start of an agent turn.
func (s *Store) BeginTurn(turnID, sessionID, model string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO turns (turn_id, session_id, model) VALUES (?, ?, ?)`,
		turnID, sessionID, model,
	)
	return err
}

// FinishTurn records the outcome of an agent turn.
func (s *Store) FinishTurn(turnID, status, errorText string, rounds, toolCalls, promptTokens, completionTokens, totalTokens int) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(`
		UPDATE turns
		SET status = ?, error_text = ?, rounds = ?, tool_calls = ?,
		    prompt_tokens = ?, completion_tokens = ?, total_tokens = ?,
		    finished_at = CURRENT_TIMESTAMP
		WHERE turn_id = ?`,
		status, errorText, rounds, toolCalls,
		promptTokens, completionTokens, totalTokens, turnID,
	)
	return err
}

// GetTurns returns the most recent turns for a session, newest first.
func (s *Store) GetTurns(sessionID string, limit int) ([]Turn, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, turn_id, session_id, status, rounds, tool_calls,
		       COALESCE(error_text, ''), prompt_tokens, completion_tokens,
		       total_tokens, COALESCE(model, ''), started_at, finished_at
		FROM turns`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Turn
	for rows.Next() {
		var t Turn
		var finished sql.NullTime
		if err := rows.Scan(&t.ID, &t.TurnID, &t.SessionID, &t.Status, &t.Rounds,
			&t.ToolCalls, &t.ErrorText, &t.PromptTokens, &t.CompletionTokens,
			&t.TotalTokens, &t.Model, &t.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			ts := finished.Time
			t.FinishedAt = &ts
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// UsageTotals aggregates token usage for a session over a time window.
// A zero since means all time.
func (s *Store) UsageTotals(sessionID string, since time.Time) (prompt, completion, total int, err error) {
	if s == nil || s.db == nil {
		return 0, 0, 0, nil
	}

	query := `
		SELECT COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0),
		       COALESCE(SUM(total_tokens), 0)
		FROM turns WHERE 1=1`
	args := []any{}
	if sessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, sessionID)
	}
	if !since.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, since)
	}

	row := s.db.QueryRow(query, args...)
	err = row.Scan(&prompt, &completion, &total)
	return prompt, completion, total, err
}
