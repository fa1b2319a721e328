package models

import "time"

// Session outcomes as persisted in the run history.
const (
	OutcomeActive    = "active"
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeErrored   = "errored"
)

// MSessionRecord represents one subscription session for the run history.
type MSessionRecord struct {
	SessionID  string    `json:"session_id"`
	Filter     string    `json:"filter"`
	SortKey    string    `json:"sort_key"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	Batches    int64     `json:"batches"`
	OpenedAt   time.Time `json:"opened_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// MBatchLogEntry represents one accepted or rejected batch in the run history.
type MBatchLogEntry struct {
	SessionID   string    `json:"session_id"`
	Seq         int64     `json:"seq"`
	Code        string    `json:"code"`
	Message     string    `json:"message,omitempty"`
	Instruments int       `json:"instruments"`
	ReceivedAt  time.Time `json:"received_at"`
}
