package event

import "fmt"

// Slot is the event storage of one port: a tagged union holding exactly one
// typed Buffer selected by Kind.
type Slot struct {
	kind   Kind
	floats Buffer[float64]
	ints   Buffer[int]
	bools  Buffer[bool]
}

// NewSlot returns an empty slot for kind.
func NewSlot(kind Kind) *Slot {
	return &Slot{kind: kind}
}

// Kind returns the value type of the slot.
func (s *Slot) Kind() Kind {
	return s.kind
}

// Reset empties the slot and binds it to arena for the next block.
func (s *Slot) Reset(arena *Arena, blockSize int) {
	switch s.kind {
	case KindFloat:
		s.floats.Reset(arena, blockSize)
	case KindInt:
		s.ints.Reset(arena, blockSize)
	case KindBool:
		s.bools.Reset(arena, blockSize)
	}
}

// Len returns the number of events in the slot.
func (s *Slot) Len() int {
	switch s.kind {
	case KindFloat:
		return s.floats.Len()
	case KindInt:
		return s.ints.Len()
	default:
		return s.bools.Len()
	}
}

// Empty reports whether the slot holds no events.
func (s *Slot) Empty() bool {
	return s.Len() == 0
}

// Float returns the float buffer. It panics if the slot is not a float slot.
func (s *Slot) Float() *Buffer[float64] {
	s.mustBe(KindFloat)
	return &s.floats
}

// Int returns the int buffer. It panics if the slot is not an int slot.
func (s *Slot) Int() *Buffer[int] {
	s.mustBe(KindInt)
	return &s.ints
}

// Bool returns the bool buffer. It panics if the slot is not a bool slot.
func (s *Slot) Bool() *Buffer[bool] {
	s.mustBe(KindBool)
	return &s.bools
}

// CopyFrom replaces the events of s with those of src. Both must share a kind.
func (s *Slot) CopyFrom(src *Slot) {
	src.mustBe(s.kind)

	switch s.kind {
	case KindFloat:
		s.floats.CopyFrom(&src.floats)
	case KindInt:
		s.ints.CopyFrom(&src.ints)
	case KindBool:
		s.bools.CopyFrom(&src.bools)
	}
}

func (s *Slot) mustBe(kind Kind) {
	if s.kind != kind {
		panic(fmt.Sprintf("event: %s slot accessed as %s", s.kind, kind))
	}
}

// BufferOf returns the typed buffer of s for T. It panics if the kind of s
// does not match T.
func BufferOf[T Value](s *Slot) *Buffer[T] {
	switch b := any(&s.floats).(type) {
	case *Buffer[T]:
		s.mustBe(KindFloat)
		return b
	}

	switch b := any(&s.ints).(type) {
	case *Buffer[T]:
		s.mustBe(KindInt)
		return b
	}

	s.mustBe(KindBool)

	return any(&s.bools).(*Buffer[T])
}

// KindOf returns the Kind carrying values of type T.
func KindOf[T Value]() Kind {
	var zero T

	switch any(zero).(type) {
	case float64:
		return KindFloat
	case int:
		return KindInt
	default:
		return KindBool
	}
}
