package models

// -----------------------------------------------------------------------------
// Server State Structure (pushed to websocket observers)
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type        string              `json:"type"` // "INITIAL" or "UPDATE"
	State       MConnectionState    `json:"state"`
	Params      MSubscriptionParams `json:"params"`
	Instruments []MInstrument       `json:"instruments"`
	Summary     MMarketSummary      `json:"summary"`
	Stats       MStreamStats        `json:"stats"`
	Timestamp   int64               `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// MControlCommand for client messages
// -----------------------------------------------------------------------------

type MControlCommand struct {
	Command string `json:"command"` // "connect", "disconnect" or "parameters"
	Filter  string `json:"filter,omitempty"`
	SortKey string `json:"sort_key,omitempty"`
}
