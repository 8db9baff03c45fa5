package processor

import (
	"fmt"

	"github.com/nooploop/piejam-sub003/audio/device"
	"github.com/nooploop/piejam-sub003/audio/slice"
)

// Input exposes one capture channel of the device as an audio output.
type Input struct {
	ports

	buffers *device.Buffers
	channel int
}

// NewInput returns a source reading capture channel ch of buffers.
func NewInput(buffers *device.Buffers, ch int) *Input {
	return &Input{
		ports:   ports{typeName: "input", name: fmt.Sprintf("in %d", ch), numOutputs: 1},
		buffers: buffers,
		channel: ch,
	}
}

func (p *Input) Process(ctx *Context) {
	if p.channel >= len(p.buffers.In) {
		ctx.Results[0] = slice.Silence()
		return
	}

	ctx.Results[0] = slice.Span(p.buffers.In[p.channel][:ctx.BufferSize])
}

// Channel returns the capture channel index.
func (p *Input) Channel() int { return p.channel }

// Output writes its inputs to consecutive playback channels of the device
// starting at First.
type Output struct {
	ports

	buffers *device.Buffers
	first   int
}

// NewOutput returns a sink writing n inputs to playback channels
// [first, first+n).
func NewOutput(buffers *device.Buffers, first, n int) *Output {
	return &Output{
		ports:   ports{typeName: "output", name: fmt.Sprintf("out %d", first), numInputs: n},
		buffers: buffers,
		first:   first,
	}
}

func (p *Output) Process(ctx *Context) {
	for i, in := range ctx.Inputs {
		ch := p.first + i
		if ch >= len(p.buffers.Out) {
			return
		}

		in.CopyTo(p.buffers.Out[ch][:ctx.BufferSize])
	}
}
