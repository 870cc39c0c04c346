package audit

import "time"

// Schema is the audit database schema, applied on open.
const Schema = `
CREATE TABLE IF NOT EXISTS tool_executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	turn_id TEXT,
	tool TEXT NOT NULL,
	category TEXT NOT NULL,
	arguments TEXT,
	outcome TEXT NOT NULL,
	failure_kind TEXT,
	result_preview TEXT,
	confirmed INTEGER NOT NULL DEFAULT 0,
	confirm_reason TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_executions_session ON tool_executions(session_id);
CREATE INDEX IF NOT EXISTS idx_executions_tool ON tool_executions(tool);

CREATE TABLE IF NOT EXISTS turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	turn_id TEXT UNIQUE NOT NULL,
	session_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'running',
	rounds INTEGER NOT NULL DEFAULT 0,
	tool_calls INTEGER NOT NULL DEFAULT 0,
	error_text TEXT,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	model TEXT,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	finished_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
`

// Execution is one recorded tool execution.
type Execution struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"session_id"`
	TurnID        string    `json:"turn_id,omitempty"`
	Tool          string    `json:"tool"`
	Category      string    `json:"category"`
	Arguments     string    `json:"arguments,omitempty"`
	Outcome       string    `json:"outcome"`
	FailureKind   string    `json:"failure_kind,omitempty"`
	ResultPreview string    `json:"result_preview,omitempty"`
	Confirmed     bool      `json:"confirmed"`
	ConfirmReason string    `json:"confirm_reason,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// Turn is one recorded agent turn.
type Turn struct {
	ID               int64      `json:"id"`
	TurnID           string     `json:"turn_id"`
	SessionID        string     `json:"session_id"`
	Status           string     `json:"status"`
	Rounds           int        `json:"rounds"`
	ToolCalls        int        `json:"tool_calls"`
	ErrorText        string     `json:"error_text,omitempty"`
	PromptTokens     int        `json:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens"`
	TotalTokens      int        `json:"total_tokens"`
	Model            string     `json:"model,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// Turn status values.
const (
	TurnRunning   = "running"
	TurnCompleted = "completed"
	TurnFailed    = "failed"
	TurnCancelled = "cancelled"
)

// Execution outcome values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeDeclined = "declined"
)
