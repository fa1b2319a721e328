package utils

import (
	"testing"

	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func point(ts int64) models.MSummaryPoint {
	return models.MSummaryPoint{Timestamp: ts, Instruments: 3, Advancing: 1, Declining: 1, Unchanged: 1}
}

func timestamps(points []models.MSummaryPoint) []int64 {
	out := make([]int64, len(points))
	for i, p := range points {
		out[i] = p.Timestamp
	}
	return out
}

// -----------------------------------------------------------------------------

func TestSummaryRingAppendAndWrap(t *testing.T) {
	ring := NewSummaryRing(3)

	for ts := int64(1); ts <= 5; ts++ {
		ring.Append(point(ts))
	}

	// The two oldest points fell out
	assert.Equal(t, 3, ring.Size())
	assert.True(t, ring.IsFull())
	assert.Equal(t, []int64{3, 4, 5}, timestamps(ring.All()))
}

// -----------------------------------------------------------------------------

func TestSummaryRingLatest(t *testing.T) {
	ring := NewSummaryRing(5)
	for ts := int64(1); ts <= 4; ts++ {
		ring.Append(point(ts))
	}

	assert.Equal(t, []int64{3, 4}, timestamps(ring.Latest(2)))

	// Asking for more than retained returns everything
	assert.Equal(t, []int64{1, 2, 3, 4}, timestamps(ring.Latest(10)))

	assert.Empty(t, ring.Latest(0))
}

// -----------------------------------------------------------------------------

func TestSummaryRingResize(t *testing.T) {
	ring := NewSummaryRing(5)
	for ts := int64(1); ts <= 5; ts++ {
		ring.Append(point(ts))
	}

	// Shrinking drops the oldest points
	ring.Resize(3)
	assert.Equal(t, 3, ring.Capacity())
	assert.Equal(t, []int64{3, 4, 5}, timestamps(ring.All()))

	// The ring keeps wrapping correctly after the resize
	ring.Append(point(6))
	assert.Equal(t, []int64{4, 5, 6}, timestamps(ring.All()))

	// Growing keeps the retained points
	ring.Resize(6)
	assert.Equal(t, 6, ring.Capacity())
	assert.False(t, ring.IsFull())
	assert.Equal(t, []int64{4, 5, 6}, timestamps(ring.All()))
}

// -----------------------------------------------------------------------------

func TestSummaryRingClear(t *testing.T) {
	ring := NewSummaryRing(4)
	ring.Append(point(1))
	ring.Append(point(2))

	ring.Clear()

	assert.Equal(t, 0, ring.Size())
	assert.Empty(t, ring.All())
	assert.Empty(t, ring.Latest(5))
}

// -----------------------------------------------------------------------------

func TestSummaryRingDefaultCapacity(t *testing.T) {
	ring := NewSummaryRing(0)
	require.Equal(t, CalculateSummaryDepth(0), ring.Capacity())
}

// -----------------------------------------------------------------------------

func TestCalculateSummaryDepth(t *testing.T) {
	// 30 minutes at one batch every 2 seconds
	assert.Equal(t, 900, CalculateSummaryDepth(0))
	assert.Equal(t, 900, CalculateSummaryDepth(30))
	assert.Equal(t, 30, CalculateSummaryDepth(1))
}
