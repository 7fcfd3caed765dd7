package repository

import (
	"sync"
	"sync/atomic"

	"waterguard/internal/models"
)

const DefaultWindowSize = 30

// ReadingRepository is the rolling window of recent readings. Appends are
// serialized; readers load an immutable snapshot and never take the lock.
type ReadingRepository struct {
	mu       sync.Mutex
	ring     []models.SensorReading
	head     int // index of the oldest entry
	size     int
	capacity int

	snapshot atomic.Pointer[[]models.SensorReading]
}

func NewReadingRepository(capacity int) *ReadingRepository {
	if capacity < 1 {
		capacity = DefaultWindowSize
	}
	r := &ReadingRepository{
		ring:     make([]models.SensorReading, capacity),
		capacity: capacity,
	}
	empty := make([]models.SensorReading, 0)
	r.snapshot.Store(&empty)
	return r
}

// Append inserts a reading, evicting the oldest one when the window is full.
func (r *ReadingRepository) Append(reading models.SensorReading) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < r.capacity {
		r.ring[(r.head+r.size)%r.capacity] = reading
		r.size++
	} else {
		r.ring[r.head] = reading
		r.head = (r.head + 1) % r.capacity
	}

	published := make([]models.SensorReading, r.size)
	for i := 0; i < r.size; i++ {
		published[i] = r.ring[(r.head+i)%r.capacity]
	}
	r.snapshot.Store(&published)
}

// Latest returns the newest reading, if any.
func (r *ReadingRepository) Latest() (models.SensorReading, bool) {
	window := *r.snapshot.Load()
	if len(window) == 0 {
		return models.SensorReading{}, false
	}
	return window[len(window)-1], true
}

// Snapshot returns the window oldest->newest. The slice belongs to the caller.
func (r *ReadingRepository) Snapshot() []models.SensorReading {
	window := *r.snapshot.Load()
	out := make([]models.SensorReading, len(window))
	copy(out, window)
	return out
}

func (r *ReadingRepository) Len() int {
	return len(*r.snapshot.Load())
}

func (r *ReadingRepository) Capacity() int {
	return r.capacity
}
