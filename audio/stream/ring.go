// Package stream moves audio from the audio thread to consumers such as
// scope and spectrum views without ever blocking the producer.
package stream

import (
	"math/bits"
	"sync/atomic"
)

// Ring is a bounded single-producer single-consumer queue. Push never blocks;
// when the ring is full the value is dropped and counted.
type Ring[T any] struct {
	buf  []T
	mask uint64

	head    atomic.Uint64 // next read position, owned by the consumer
	tail    atomic.Uint64 // next write position, owned by the producer
	dropped atomic.Uint64
}

// NewRing returns a ring holding at least capacity values. The capacity is
// rounded up to a power of two.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}

	size := uint64(1) << bits.Len64(uint64(capacity-1))

	return &Ring[T]{buf: make([]T, size), mask: size - 1}
}

// Cap returns the number of values the ring can hold.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Len returns the number of values ready to be read.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Free returns the number of values that can be pushed without dropping.
// Only meaningful on the producer side.
func (r *Ring[T]) Free() int {
	return len(r.buf) - r.Len()
}

// Dropped returns the total number of values rejected because the ring was
// full.
func (r *Ring[T]) Dropped() uint64 { return r.dropped.Load() }

// Push appends v. It reports false and counts a drop when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() == uint64(len(r.buf)) {
		r.dropped.Add(1)
		return false
	}

	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)

	return true
}

// Drop records n values the producer discarded without attempting to push.
func (r *Ring[T]) Drop(n int) {
	if n > 0 {
		r.dropped.Add(uint64(n))
	}
}

// Pop removes the oldest value.
func (r *Ring[T]) Pop() (T, bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		var zero T
		return zero, false
	}

	v := r.buf[head&r.mask]
	r.head.Store(head + 1)

	return v, true
}

// PopInto moves up to len(dst) values into dst and returns how many were
// moved.
func (r *Ring[T]) PopInto(dst []T) int {
	head := r.head.Load()
	n := min(int(r.tail.Load()-head), len(dst))

	for i := range n {
		dst[i] = r.buf[(head+uint64(i))&r.mask]
	}

	r.head.Store(head + uint64(n))

	return n
}
