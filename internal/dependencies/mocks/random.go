package mocks

import (
	"sync"

	"github.com/mcoot/minesgame/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	mu sync.Mutex

	// IntnResults is a queue of results to return from Intn
	IntnResults []int
	intnIndex   int
	fallback    int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued result modulo n. Once the queue is drained it
// counts up from 0 so that rejection sampling always terminates.
func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 {
		return 0
	}
	if r.intnIndex >= len(r.IntnResults) {
		result := r.fallback % n
		r.fallback++
		return result
	}
	result := r.IntnResults[r.intnIndex]
	r.intnIndex++
	return result % n
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IntnResults = append(r.IntnResults, values...)
}

// QueueCells queues the row-major index of each cell on a size x size grid
// as one Intn result, which is how the grid service samples mine positions.
func (r *MockRandom) QueueCells(size int, cells ...[2]int) {
	for _, c := range cells {
		r.QueueIntn(c[0]*size + c[1])
	}
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IntnResults = nil
	r.intnIndex = 0
	r.fallback = 0
}
