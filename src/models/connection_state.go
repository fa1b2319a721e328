package models

// MConnectionState is the observable status of the stream client. LastError
// is empty while no failure is being reported; a user initiated stop never
// populates it.
type MConnectionState struct {
	IsConnected  bool   `json:"is_connected"`
	LastError    string `json:"last_error,omitempty"`
	LastUpdate   int64  `json:"last_update"` // unix millis of the newest accepted batch
	MessageCount int64  `json:"message_count"`
}
