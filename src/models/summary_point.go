package models

// MSummaryPoint is one row of the bounded summary history: the breadth of a
// single accepted batch plus the gap to the batch before it.
type MSummaryPoint struct {
	Timestamp       int64   `json:"timestamp"`
	Instruments     int     `json:"instruments"`
	Advancing       int     `json:"advancing"`
	Declining       int     `json:"declining"`
	Unchanged       int     `json:"unchanged"`
	TotalVolume     int64   `json:"total_volume"`
	IntervalSeconds float64 `json:"interval_seconds"`
}
