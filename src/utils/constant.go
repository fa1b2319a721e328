package utils

import "math"

// -----------------------------------------------------------------------------

// Constants for summary history retention.
// The feed pushes roughly one batch every 2 seconds, so 30 minutes of
// history needs 900 points.
const (
	DefaultBatchIntervalSeconds = 2
	DefaultRetainMinutes        = 30
)

// -----------------------------------------------------------------------------

// CalculateSummaryDepth sizes the summary ring for a retention window based
// on the expected batch cadence.
func CalculateSummaryDepth(retainMinutes int) int {
	if retainMinutes <= 0 {
		retainMinutes = DefaultRetainMinutes
	}
	return int(math.Ceil(float64(retainMinutes) * 60 / DefaultBatchIntervalSeconds))
}
