package stream

import (
	"fmt"

	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

// Stream carries interleaved frames of a fixed channel count.
type Stream struct {
	channels int
	ring     *Ring[float64]
}

// New returns a stream buffering at least capacityFrames frames of channels
// channels.
func New(channels, capacityFrames int) *Stream {
	if channels < 1 {
		panic(fmt.Sprintf("stream: invalid channel count %d", channels))
	}

	return &Stream{channels: channels, ring: NewRing[float64](channels * capacityFrames)}
}

// Channels returns the number of interleaved channels.
func (s *Stream) Channels() int { return s.channels }

// DroppedFrames returns the number of frames lost to a slow consumer.
func (s *Stream) DroppedFrames() uint64 { return s.ring.Dropped() / uint64(s.channels) }

// AvailableFrames returns the number of complete frames ready to read.
func (s *Stream) AvailableFrames() int { return s.ring.Len() / s.channels }

// Read moves up to len(dst)/Channels() interleaved frames into dst and
// returns the number of frames read.
func (s *Stream) Read(dst []float64) int {
	frames := min(len(dst)/s.channels, s.AvailableFrames())

	return s.ring.PopInto(dst[:frames*s.channels]) / s.channels
}

// Processor tees its inputs into a Stream. It has no outputs. Frames that
// do not fit are dropped as a whole so channels stay aligned.
type Processor struct {
	stream *Stream
	name   string
}

// NewProcessor returns a processor writing to s.
func NewProcessor(name string, s *Stream) *Processor {
	return &Processor{stream: s, name: name}
}

var _ processor.Processor = (*Processor)(nil)

func (p *Processor) TypeName() string { return "stream" }

func (p *Processor) Name() string { return p.name }

func (p *Processor) NumInputs() int { return p.stream.channels }

func (p *Processor) NumOutputs() int { return 0 }

func (p *Processor) EventInputs() []event.Port { return nil }

func (p *Processor) EventOutputs() []event.Port { return nil }

func (p *Processor) Process(ctx *processor.Context) {
	ring := p.stream.ring
	nch := p.stream.channels

	frames := min(ctx.BufferSize, ring.Free()/nch)

	for i := range frames {
		for _, in := range ctx.Inputs {
			ring.Push(in.At(i))
		}
	}

	ring.Drop((ctx.BufferSize - frames) * nch)
}
