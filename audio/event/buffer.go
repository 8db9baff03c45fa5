package event

import "fmt"

const minBufferCapacity = 4

// Buffer holds the events of one port for one block, ordered by offset.
type Buffer[T Value] struct {
	arena     *Arena
	events    []Event[T]
	blockSize int
}

// Reset empties b and binds it to arena for a block of blockSize frames.
func (b *Buffer[T]) Reset(arena *Arena, blockSize int) {
	b.arena = arena
	b.events = nil
	b.blockSize = blockSize
}

// Empty reports whether b holds no events.
func (b *Buffer[T]) Empty() bool {
	return len(b.events) == 0
}

// Len returns the number of events.
func (b *Buffer[T]) Len() int {
	return len(b.events)
}

// At returns the i-th event in offset order.
func (b *Buffer[T]) At(i int) Event[T] {
	return b.events[i]
}

// Events returns the events in offset order. The slice is only valid until
// the end of the current block and must not be modified.
func (b *Buffer[T]) Events() []Event[T] {
	return b.events
}

// Insert adds an event keeping offsets ascending. Events with equal offsets
// keep insertion order. offset must lie in [0, blockSize).
func (b *Buffer[T]) Insert(offset int, value T) {
	if offset < 0 || offset >= b.blockSize {
		panic(fmt.Sprintf("event: offset %d outside block of %d frames", offset, b.blockSize))
	}

	if len(b.events) == cap(b.events) {
		b.grow()
	}

	i := len(b.events)
	for i > 0 && b.events[i-1].Offset > offset {
		i--
	}

	b.events = b.events[:len(b.events)+1]
	copy(b.events[i+1:], b.events[i:])
	b.events[i] = Event[T]{Offset: offset, Value: value}
}

// CopyFrom replaces the content of b with the events of src.
func (b *Buffer[T]) CopyFrom(src *Buffer[T]) {
	b.events = b.events[:0]
	for _, ev := range src.events {
		b.Insert(ev.Offset, ev.Value)
	}
}

func (b *Buffer[T]) grow() {
	if b.arena == nil {
		panic("event: insert into unbound buffer")
	}

	grown := poolFor[T](b.arena).alloc(max(2*cap(b.events), minBufferCapacity))
	b.events = append(grown, b.events...)
}
