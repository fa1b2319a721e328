package analysis

import (
	"testing"

	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"github.com/stretchr/testify/assert"
)

// -----------------------------------------------------------------------------

func historyPoint(interval float64, advancing int, volume int64) models.MSummaryPoint {
	return models.MSummaryPoint{
		Instruments:     10,
		Advancing:       advancing,
		Declining:       10 - advancing,
		TotalVolume:     volume,
		IntervalSeconds: interval,
	}
}

// -----------------------------------------------------------------------------

func TestComputeCadenceIntervals(t *testing.T) {
	// First point of a session carries no interval and must be excluded
	// from the cadence mean.
	points := []models.MSummaryPoint{
		historyPoint(0, 5, 100),
		historyPoint(2, 5, 100),
		historyPoint(2, 5, 100),
		historyPoint(2, 5, 100),
		historyPoint(4, 5, 100),
	}

	cadence := ComputeCadence(points)

	assert.Equal(t, 5, cadence.Samples)
	assert.InDelta(t, 2.5, cadence.MeanIntervalSeconds, 1e-9)
	assert.InDelta(t, 0.8660254, cadence.StdIntervalSeconds, 1e-6)
	assert.InDelta(t, 4.0, cadence.LatestIntervalSeconds, 1e-9)

	// The stretched final gap sits above the mean
	assert.InDelta(t, 1.7320508, cadence.LatestIntervalZScore, 1e-6)
}

// -----------------------------------------------------------------------------

func TestComputeCadenceVolumeAnomaly(t *testing.T) {
	points := []models.MSummaryPoint{
		historyPoint(2, 5, 100),
		historyPoint(2, 5, 100),
		historyPoint(2, 5, 100),
		historyPoint(2, 5, 100),
		historyPoint(2, 5, 200),
	}

	cadence := ComputeCadence(points)

	// Latest volume 200 against a mean of 120
	assert.InDelta(t, 200.0/120.0, cadence.VolumeAnomalyRatio, 1e-9)
}

// -----------------------------------------------------------------------------

func TestComputeCadenceBreadthVolumeCorrelation(t *testing.T) {
	// Advancing share rises in lockstep with volume, perfectly correlated
	points := []models.MSummaryPoint{
		historyPoint(2, 1, 100),
		historyPoint(2, 2, 200),
		historyPoint(2, 3, 300),
		historyPoint(2, 4, 400),
		historyPoint(2, 5, 500),
	}

	cadence := ComputeCadence(points)
	assert.InDelta(t, 1.0, cadence.BreadthVolumeCorrelation, 1e-6)

	// Reverse the volumes, perfectly anti-correlated
	for i := range points {
		points[i].TotalVolume = int64(500 - 100*i)
	}
	cadence = ComputeCadence(points)
	assert.InDelta(t, -1.0, cadence.BreadthVolumeCorrelation, 1e-6)
}

// -----------------------------------------------------------------------------

func TestComputeCadenceDegenerateInput(t *testing.T) {
	assert.Equal(t, models.MFeedCadence{}, ComputeCadence(nil))

	// One first-batch point: no intervals, anomaly against its own volume
	cadence := ComputeCadence([]models.MSummaryPoint{historyPoint(0, 5, 100)})
	assert.Equal(t, 1, cadence.Samples)
	assert.Zero(t, cadence.MeanIntervalSeconds)
	assert.Zero(t, cadence.StdIntervalSeconds)
	assert.Zero(t, cadence.LatestIntervalZScore)
	assert.InDelta(t, 1.0, cadence.VolumeAnomalyRatio, 1e-9)
	assert.Zero(t, cadence.BreadthVolumeCorrelation)
}
