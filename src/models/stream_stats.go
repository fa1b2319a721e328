package models

// MStreamStats represents lightweight counters about the consume loop, pushed
// alongside state updates so observers can judge feed liveness.
type MStreamStats struct {
	SessionID        string  `json:"session_id,omitempty"`
	BatchesOK        int64   `json:"batches_ok"`
	BatchesRejected  int64   `json:"batches_rejected"`
	LastBatchSeconds float64 `json:"last_batch_seconds"`
	SessionsOpened   int64   `json:"sessions_opened"`
}
