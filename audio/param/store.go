package param

import (
	"fmt"
	"math"
	"slices"
)

// Map is an identity-indexed set of parameters of one value type. It is
// mutated by the control thread only; the audio thread holds Slot pointers
// resolved at graph build time and never touches the map.
type Map[T any] struct {
	slots map[ID[T]]*Slot[T]
}

// NewMap returns an empty map.
func NewMap[T any]() *Map[T] {
	return &Map[T]{slots: make(map[ID[T]]*Slot[T])}
}

// Add creates a parameter initialized to desc.Default.
func (m *Map[T]) Add(desc Descriptor[T]) ID[T] {
	id := newID[T]()
	m.slots[id] = newSlot(desc)

	return id
}

// Remove deletes a parameter. Removing an unknown ID is a no-op.
func (m *Map[T]) Remove(id ID[T]) {
	delete(m.slots, id)
}

// Slot returns the slot of id.
func (m *Map[T]) Slot(id ID[T]) (*Slot[T], bool) {
	s, ok := m.slots[id]
	return s, ok
}

// Get returns the current value of id.
func (m *Map[T]) Get(id ID[T]) (T, error) {
	s, ok := m.slots[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %d", ErrUnknownParameter, id.n)
	}

	return s.Get(), nil
}

// Set publishes a new value for id.
func (m *Map[T]) Set(id ID[T], v T) error {
	s, ok := m.slots[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownParameter, id.n)
	}

	s.Set(v)

	return nil
}

// Len returns the number of parameters.
func (m *Map[T]) Len() int {
	return len(m.slots)
}

// IDs returns all IDs in creation order.
func (m *Map[T]) IDs() []ID[T] {
	ids := make([]ID[T], 0, len(m.slots))
	for id := range m.slots {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, func(a, b ID[T]) int {
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		default:
			return 0
		}
	})

	return ids
}

// Store holds all parameters of the application, one map per value type.
type Store struct {
	Floats       *Map[float64]
	Ints         *Map[int]
	Bools        *Map[bool]
	StereoLevels *Map[StereoLevel]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		Floats:       NewMap[float64](),
		Ints:         NewMap[int](),
		Bools:        NewMap[bool](),
		StereoLevels: NewMap[StereoLevel](),
	}
}

// FloatRange describes a float parameter linearly mapped onto [lo, hi].
func FloatRange(name string, def, lo, hi float64) Descriptor[float64] {
	return Descriptor[float64]{
		Name:    name,
		Default: def,
		Clamp: func(v float64) float64 {
			if math.IsNaN(v) {
				return def
			}

			return min(max(v, lo), hi)
		},
		ToNormalized: func(v float64) float64 {
			if hi == lo {
				return 0
			}

			return (v - lo) / (hi - lo)
		},
		FromNormalized: func(n float64) float64 { return lo + n*(hi-lo) },
	}
}

// IntRange describes an int (or enum) parameter in [lo, hi].
func IntRange(name string, def, lo, hi int) Descriptor[int] {
	return Descriptor[int]{
		Name:    name,
		Default: def,
		Clamp:   func(v int) int { return min(max(v, lo), hi) },
		ToNormalized: func(v int) float64 {
			if hi == lo {
				return 0
			}

			return float64(v-lo) / float64(hi-lo)
		},
		FromNormalized: func(n float64) int { return lo + int(math.Round(n*float64(hi-lo))) },
	}
}

// Toggle describes a bool parameter. Normalized values >= 0.5 switch it on.
func Toggle(name string, def bool) Descriptor[bool] {
	return Descriptor[bool]{
		Name:    name,
		Default: def,
		ToNormalized: func(v bool) float64 {
			if v {
				return 1
			}

			return 0
		},
		FromNormalized: func(n float64) bool { return n >= 0.5 },
	}
}
