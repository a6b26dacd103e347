// Package pool provides typed object pooling for tabflow. It wraps
// sync.Pool with type safety and usage statistics, and exposes a global
// pool for encoded feature vectors, the one allocation the batch builder
// makes per row.
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety. It is safe for
// concurrent use and tracks allocation and usage counts for monitoring.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
	}
}

// New creates a new typed pool. The new function is called when the pool is
// empty; the optional reset function is called before an object is returned
// to the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool for reuse, resetting it first when a
// reset function was provided.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns the total objects allocated and the number currently
// checked out.
func (p *Pool[T]) Stats() (allocated, inUse int64) {
	return atomic.LoadInt64(&p.stats.allocated), atomic.LoadInt64(&p.stats.inUse)
}

const defaultVectorCap = 256

// vectorPool recycles float64 slices used as encoded feature vectors.
var vectorPool = New(
	func() []float64 { return make([]float64, 0, defaultVectorCap) },
	func(v []float64) {},
)

// GetVector retrieves a zero-length vector with at least the given
// capacity. The encoder grows it as needed; callers hand it back with
// PutVector once the batch has been consumed.
func GetVector(capacity int) []float64 {
	v := vectorPool.Get()
	if cap(v) < capacity {
		return make([]float64, 0, capacity)
	}
	return v[:0]
}

// PutVector returns a vector to the pool
func PutVector(v []float64) {
	if v == nil {
		return
	}
	vectorPool.Put(v[:0])
}
