package models

// MMarketSummary holds breadth statistics computed over the most recent
// batch. It is derived data, recomputed on every accepted refresh.
type MMarketSummary struct {
	Instruments int     `json:"instruments"`
	Advancing   int     `json:"advancing"`
	Declining   int     `json:"declining"`
	Unchanged   int     `json:"unchanged"`
	TotalVolume int64   `json:"total_volume"`
	TotalValue  float64 `json:"total_value"`
	TotalFreq   int64   `json:"total_freq"`
}
