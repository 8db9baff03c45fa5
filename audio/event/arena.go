package event

import (
	"errors"
	"unsafe"
)

// ErrArenaExhausted is the panic value raised when a block produces more
// events than the arena was sized for. It indicates a configuration defect.
var ErrArenaExhausted = errors.New("event: arena exhausted")

// DefaultArenaSize is the per-thread event memory used when none is configured.
const DefaultArenaSize = 1 << 16

// Arena is the per-block event memory. Allocations are only reclaimed
// wholesale by Reset. An Arena is owned by one thread at a time.
type Arena struct {
	floats pool[float64]
	ints   pool[int]
	bools  pool[bool]
}

// NewArena returns an arena with sizeBytes of storage for each event kind.
func NewArena(sizeBytes int) *Arena {
	if sizeBytes <= 0 {
		sizeBytes = DefaultArenaSize
	}

	return &Arena{
		floats: newPool[float64](sizeBytes),
		ints:   newPool[int](sizeBytes),
		bools:  newPool[bool](sizeBytes),
	}
}

// Reset reclaims every allocation made since the previous Reset.
func (a *Arena) Reset() {
	a.floats.used = 0
	a.ints.used = 0
	a.bools.used = 0
}

// Used returns the number of events currently allocated per kind.
func (a *Arena) Used() (floats, ints, bools int) {
	return a.floats.used, a.ints.used, a.bools.used
}

type pool[T Value] struct {
	mem  []Event[T]
	used int
}

func newPool[T Value](sizeBytes int) pool[T] {
	n := sizeBytes / int(unsafe.Sizeof(Event[T]{}))

	return pool[T]{mem: make([]Event[T], max(n, 1))}
}

// alloc returns an empty slice with capacity n.
func (p *pool[T]) alloc(n int) []Event[T] {
	if p.used+n > len(p.mem) {
		panic(ErrArenaExhausted)
	}

	s := p.mem[p.used : p.used : p.used+n]
	p.used += n

	return s
}

func poolFor[T Value](a *Arena) *pool[T] {
	var zero T

	switch any(zero).(type) {
	case float64:
		return any(&a.floats).(*pool[T])
	case int:
		return any(&a.ints).(*pool[T])
	default:
		return any(&a.bools).(*pool[T])
	}
}
