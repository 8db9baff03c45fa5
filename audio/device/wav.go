package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrFormat is returned when a WAV input does not match the device config.
var ErrFormat = errors.New("device: unsupported wav format")

const wavBitDepth = 16

// WAVOption configures an offline WAV device.
type WAVOption func(*WAV)

// WithInput reads capture channels from a WAV stream. Interleaved file
// channels map onto capture channels in order; missing ones read silence.
func WithInput(r io.ReadSeeker) WAVOption {
	return func(d *WAV) { d.src = r }
}

// WithFrames limits the render length. Without an input it is the total
// length; with one the render stops at whichever ends first.
func WithFrames(n int) WAVOption {
	return func(d *WAV) { d.limit = n }
}

// WAV is an offline device rendering into a 16-bit PCM WAV stream as fast
// as the engine can process.
type WAV struct {
	cfg Config

	src      io.ReadSeeker
	dec      *wav.Decoder
	srcChans int
	srcScale float64
	inBuf    *audio.IntBuffer

	enc    *wav.Encoder
	outBuf *audio.IntBuffer

	limit  int
	frames int
	closed bool
}

var _ Device = (*WAV)(nil)

// OpenWAV returns a device writing cfg.OutputChannels to out.
func OpenWAV(cfg Config, out io.WriteSeeker, opts ...WAVOption) (*WAV, error) {
	d := &WAV{cfg: cfg}

	for _, opt := range opts {
		opt(d)
	}

	if d.src != nil {
		if err := d.openInput(); err != nil {
			return nil, err
		}
	}

	format := &audio.Format{NumChannels: cfg.OutputChannels, SampleRate: cfg.SampleRate}
	d.enc = wav.NewEncoder(out, cfg.SampleRate, wavBitDepth, cfg.OutputChannels, 1)
	d.outBuf = &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, cfg.PeriodSize*cfg.OutputChannels),
		SourceBitDepth: wavBitDepth,
	}

	return d, nil
}

func (d *WAV) openInput() error {
	d.dec = wav.NewDecoder(d.src)
	if !d.dec.IsValidFile() {
		return fmt.Errorf("%w: not a wav file", ErrFormat)
	}

	if err := d.dec.FwdToPCM(); err != nil {
		return fmt.Errorf("device: wav input: %w", err)
	}

	format := d.dec.Format()
	if format.SampleRate != d.cfg.SampleRate {
		return fmt.Errorf("%w: sample rate %d, want %d", ErrFormat, format.SampleRate, d.cfg.SampleRate)
	}

	bitDepth := int(d.dec.SampleBitDepth())
	if bitDepth == 0 || format.NumChannels == 0 {
		return fmt.Errorf("%w: %d channels of %d bits", ErrFormat, format.NumChannels, bitDepth)
	}

	d.srcChans = format.NumChannels
	d.srcScale = 1 / math.Pow(2, float64(bitDepth-1))
	d.inBuf = &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, d.cfg.PeriodSize*format.NumChannels),
		SourceBitDepth: bitDepth,
	}

	return nil
}

// Config returns the stream configuration.
func (d *WAV) Config() Config { return d.cfg }

// Frames returns the number of frames read so far.
func (d *WAV) Frames() int { return d.frames }

func (d *WAV) Read(_ context.Context, b *Buffers, frames int) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}

	if d.limit > 0 {
		frames = min(frames, d.limit-d.frames)
	} else if d.dec == nil {
		frames = 0
	}

	if frames <= 0 {
		return 0, io.EOF
	}

	if d.dec == nil {
		for _, ch := range b.In {
			clear(ch[:frames])
		}

		d.frames += frames

		return frames, nil
	}

	d.inBuf.Data = d.inBuf.Data[:frames*d.srcChans]

	n, err := d.dec.PCMBuffer(d.inBuf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("device: wav input: %w", err)
	}

	got := n / d.srcChans
	if got == 0 {
		return 0, io.EOF
	}

	for ch, in := range b.In {
		if ch >= d.srcChans {
			clear(in[:got])
			continue
		}

		for i := range got {
			in[i] = float64(d.inBuf.Data[i*d.srcChans+ch]) * d.srcScale
		}
	}

	d.frames += got

	return got, nil
}

func (d *WAV) Write(_ context.Context, b *Buffers, frames int) error {
	if d.closed {
		return ErrClosed
	}

	chans := d.cfg.OutputChannels
	d.outBuf.Data = d.outBuf.Data[:frames*chans]

	for ch := range chans {
		out := b.Out[ch]
		for i := range frames {
			d.outBuf.Data[i*chans+ch] = toPCM16(out[i])
		}
	}

	if err := d.enc.Write(d.outBuf); err != nil {
		return fmt.Errorf("device: wav output: %w", err)
	}

	return nil
}

// Close finalizes the WAV header. It does not close the underlying streams.
func (d *WAV) Close() error {
	if d.closed {
		return nil
	}

	d.closed = true

	if err := d.enc.Close(); err != nil {
		return fmt.Errorf("device: wav output: %w", err)
	}

	return nil
}

func toPCM16(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= 1:
		return math.MaxInt16
	case v <= -1:
		return -math.MaxInt16
	default:
		return int(math.Round(v * math.MaxInt16))
	}
}
