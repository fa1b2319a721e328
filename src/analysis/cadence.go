package analysis

import (
	"github.com/ahfrd/grpc-stream-client-side/src/analysis/core"
	"github.com/ahfrd/grpc-stream-client-side/src/models"
)

// -----------------------------------------------------------------------------

// ComputeCadence derives feed liveness statistics from the retained summary
// points. A large z-score on the latest interval flags a stalling feed, the
// anomaly ratio flags unusual turnover in the latest batch.
func ComputeCadence(points []models.MSummaryPoint) models.MFeedCadence {
	cadence := models.MFeedCadence{Samples: len(points)}
	if len(points) == 0 {
		return cadence
	}

	// The first batch of a session has no predecessor, its interval is zero
	// and carries no cadence information.
	var intervals []float64
	volumes := make([]float64, len(points))
	ratios := make([]float64, len(points))

	for i, p := range points {
		if p.IntervalSeconds > 0 {
			intervals = append(intervals, p.IntervalSeconds)
		}
		volumes[i] = float64(p.TotalVolume)
		if p.Instruments > 0 {
			ratios[i] = float64(p.Advancing) / float64(p.Instruments)
		}
	}

	meanInterval, stdInterval := core.CalculateMeanStd(intervals)
	latest := points[len(points)-1]

	cadence.MeanIntervalSeconds = meanInterval
	cadence.StdIntervalSeconds = stdInterval
	cadence.LatestIntervalSeconds = latest.IntervalSeconds
	cadence.LatestIntervalZScore = core.CalculateZScore(latest.IntervalSeconds, meanInterval, stdInterval)

	meanVolume, _ := core.CalculateMeanStd(volumes)
	cadence.VolumeAnomalyRatio = core.CalculateAnomalyRatio(float64(latest.TotalVolume), meanVolume)

	cadence.BreadthVolumeCorrelation = core.CalculateCorrelation(ratios, volumes)

	return cadence
}
