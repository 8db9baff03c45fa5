// Package param implements the parameter value model shared by the control
// thread and the audio thread.
//
// Every parameter is addressed by an opaque, never reused ID. Its current
// value lives in a Slot as an immutable snapshot: the control thread
// publishes a fresh snapshot on every Set and the audio thread loads the
// latest one without locking.
package param

import (
	"errors"
	"sync/atomic"
)

// ErrUnknownParameter is returned when an ID does not name a live parameter.
var ErrUnknownParameter = errors.New("param: unknown parameter")

// StereoLevel is a composite left/right level value.
type StereoLevel struct {
	Left, Right float64
}

var nextID atomic.Uint64

// ID identifies one parameter of value type T. The zero ID is invalid.
type ID[T any] struct {
	n uint64
}

// Valid reports whether id was issued by a Map.
func (id ID[T]) Valid() bool {
	return id.n != 0
}

// Uint64 returns the raw identifier, for logging and persistence.
func (id ID[T]) Uint64() uint64 {
	return id.n
}

func newID[T any]() ID[T] {
	return ID[T]{n: nextID.Add(1)}
}

// Common ID aliases.
type (
	FloatID       = ID[float64]
	IntID         = ID[int]
	BoolID        = ID[bool]
	StereoLevelID = ID[StereoLevel]
)

// Descriptor describes a parameter.
type Descriptor[T any] struct {
	Name    string
	Default T

	// Clamp, if set, is applied to every value passed to Set.
	Clamp func(T) T

	// ToNormalized and FromNormalized map values to and from [0, 1]. They
	// are used by MIDI assignment. Nil means the parameter is not mappable.
	ToNormalized   func(T) float64
	FromNormalized func(float64) T
}

// Slot holds the current snapshot of one parameter.
type Slot[T any] struct {
	desc  Descriptor[T]
	value atomic.Pointer[T]
}

func newSlot[T any](desc Descriptor[T]) *Slot[T] {
	s := &Slot[T]{desc: desc}
	s.Set(desc.Default)

	return s
}

// Descriptor returns the parameter description.
func (s *Slot[T]) Descriptor() Descriptor[T] {
	return s.desc
}

// Get returns the current value.
func (s *Slot[T]) Get() T {
	return *s.value.Load()
}

// Snapshot returns the current immutable snapshot. Pointer identity changes
// on every Set, which lets readers detect updates without comparing values.
func (s *Slot[T]) Snapshot() *T {
	return s.value.Load()
}

// Set publishes v as the new value. It allocates and must not be called on
// the audio thread.
func (s *Slot[T]) Set(v T) {
	if s.desc.Clamp != nil {
		v = s.desc.Clamp(v)
	}

	s.value.Store(&v)
}

// SetNormalized sets the value from a normalized [0, 1] position.
// It reports false if the parameter has no normalized mapping.
func (s *Slot[T]) SetNormalized(n float64) bool {
	if s.desc.FromNormalized == nil {
		return false
	}

	s.Set(s.desc.FromNormalized(min(max(n, 0), 1)))

	return true
}
