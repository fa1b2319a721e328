package utils

import (
	"github.com/ahfrd/grpc-stream-client-side/src/models"
)

// -----------------------------------------------------------------------------
// SummaryRing is a fixed-size circular buffer of summary points. The ring
// itself is not synchronized, the owning controller serializes access.
// -----------------------------------------------------------------------------

type SummaryRing struct {
	data     []models.MSummaryPoint
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewSummaryRing creates a ring with fixed capacity.
func NewSummaryRing(capacity int) *SummaryRing {
	if capacity <= 0 {
		capacity = CalculateSummaryDepth(0)
	}

	return &SummaryRing{
		data:     make([]models.MSummaryPoint, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds one point, overwriting the oldest when full.
func (r *SummaryRing) Append(point models.MSummaryPoint) {
	r.data[r.index] = point
	r.index = (r.index + 1) % r.capacity

	// Size never exceeds capacity
	if r.size < r.capacity {
		r.size++
	}
}

// -----------------------------------------------------------------------------

// Latest returns the n newest points in insertion order (oldest of the n
// first).
func (r *SummaryRing) Latest(n int) []models.MSummaryPoint {
	if r.size == 0 || n <= 0 {
		return []models.MSummaryPoint{}
	}

	count := n
	if n > r.size {
		count = r.size
	}

	result := make([]models.MSummaryPoint, count)

	// Newest element sits at index-1
	startIdx := (r.index - count + r.capacity) % r.capacity

	for i := 0; i < count; i++ {
		result[i] = r.data[(startIdx+i)%r.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// All returns every retained point, oldest to newest.
func (r *SummaryRing) All() []models.MSummaryPoint {
	if r.size == 0 {
		return []models.MSummaryPoint{}
	}

	result := make([]models.MSummaryPoint, r.size)

	// When full the oldest element is at the write position
	var startIdx int
	if r.size == r.capacity {
		startIdx = r.index
	} else {
		startIdx = 0
	}

	for i := 0; i < r.size; i++ {
		result[i] = r.data[(startIdx+i)%r.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// Size returns the current number of elements.
func (r *SummaryRing) Size() int {
	return r.size
}

// -----------------------------------------------------------------------------

// Capacity returns the fixed capacity.
func (r *SummaryRing) Capacity() int {
	return r.capacity
}

// -----------------------------------------------------------------------------

// Resize changes the capacity. When shrinking, the oldest points are dropped.
func (r *SummaryRing) Resize(newCapacity int) {
	if newCapacity <= 0 || newCapacity == r.capacity {
		return
	}

	newData := make([]models.MSummaryPoint, newCapacity)

	count := r.size
	if count > newCapacity {
		count = newCapacity
	}

	// Carry over the newest count points
	startIdx := (r.index - count + r.capacity) % r.capacity
	for i := 0; i < count; i++ {
		newData[i] = r.data[(startIdx+i)%r.capacity]
	}

	r.data = newData
	r.capacity = newCapacity
	r.size = count
	r.index = count % newCapacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether the ring is at capacity.
func (r *SummaryRing) IsFull() bool {
	return r.size == r.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the ring.
func (r *SummaryRing) Clear() {
	r.index = 0
	r.size = 0
}
