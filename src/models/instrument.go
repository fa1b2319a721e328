package models

// MInstrument represents a single listed stock row as delivered by the feed.
type MInstrument struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
	TotalVolume   int64   `json:"total_volume"`
	Value         float64 `json:"value"`
	TotalFreq     int64   `json:"total_freq"`
}

// -----------------------------------------------------------------------------
// Record Batch (one streamed message from the feed)
// -----------------------------------------------------------------------------

const BatchCodeOK = "200"

// MRecordBatch is a full refresh of the subscribed view. Instruments arrive
// already ordered by the requested sort key.
type MRecordBatch struct {
	Code        string        `json:"code"`
	Message     string        `json:"message,omitempty"`
	Instruments []MInstrument `json:"instruments"`
}

// IsOK reports whether the feed marked this batch as a successful refresh.
func (b *MRecordBatch) IsOK() bool {
	return b.Code == BatchCodeOK
}
