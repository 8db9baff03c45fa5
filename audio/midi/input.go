package midi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nooploop/piejam-sub003/audio/param"
	"github.com/nooploop/piejam-sub003/audio/stream"
)

// DefaultQueueSize is the capacity of the input and feedback queues.
const DefaultQueueSize = 1024

// ErrQueueFull is returned by Push when the audio thread fell behind.
var ErrQueueFull = errors.New("midi: input queue full")

// Feedback reports a parameter value set by a controller.
type Feedback struct {
	Target     Target
	Normalized float64
}

// Learned reports a controller captured while learning.
type Learned struct {
	Source Source
	Target Target
}

// Input connects MIDI devices to the audio graph. Device goroutines call
// Push; the engine's MIDI processor drains the queue on the audio thread;
// the control thread collects feedback and learned assignments.
type Input struct {
	mu     sync.Mutex
	events *stream.Ring[Event]

	feedback *stream.Ring[Feedback]
	learned  *stream.Ring[Learned]

	learning atomic.Pointer[Target]
}

// NewInput returns an input whose queues hold queueSize entries each.
func NewInput(queueSize int) *Input {
	return &Input{
		events:   stream.NewRing[Event](queueSize),
		feedback: stream.NewRing[Feedback](queueSize),
		learned:  stream.NewRing[Learned](16),
	}
}

// Push decodes raw and queues it for the audio thread. Messages other than
// control and program changes are ignored. Safe for concurrent use.
func (in *Input) Push(dev DeviceID, raw []byte) error {
	ev, ok := Decode(dev, raw)
	if !ok {
		return nil
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if !in.events.Push(ev) {
		return fmt.Errorf("%w: dropped %s", ErrQueueFull, ev.Source)
	}

	return nil
}

// Dropped returns the number of events lost to a full queue.
func (in *Input) Dropped() uint64 { return in.events.Dropped() }

// Learn makes the next controller that moves drive t. Learning a zero
// target cancels a pending learn.
func (in *Input) Learn(t Target) {
	if !t.Valid() {
		in.learning.Store(nil)
		return
	}

	in.learning.Store(&t)
}

// Learning reports whether a learn is pending.
func (in *Input) Learning() bool { return in.learning.Load() != nil }

// PollLearned returns the next learned assignment.
func (in *Input) PollLearned() (Learned, bool) {
	return in.learned.Pop()
}

// ApplyFeedback drains the feedback queue into store so parameters moved by
// controllers show their new values. It returns the number of values
// applied. Call it from the control thread only.
func (in *Input) ApplyFeedback(store *param.Store) int {
	n := 0

	for {
		fb, ok := in.feedback.Pop()
		if !ok {
			return n
		}

		var slotOK bool

		switch t := fb.Target; {
		case t.Float.Valid():
			slotOK = setNormalized(store.Floats, t.Float, fb.Normalized)
		case t.Int.Valid():
			slotOK = setNormalized(store.Ints, t.Int, fb.Normalized)
		case t.Bool.Valid():
			slotOK = setNormalized(store.Bools, t.Bool, fb.Normalized)
		}

		if slotOK {
			n++
		}
	}
}

func setNormalized[T any](m *param.Map[T], id param.ID[T], n float64) bool {
	slot, ok := m.Slot(id)
	return ok && slot.SetNormalized(n)
}
