// Package device is the boundary between the engine and audio hardware.
//
// The engine sees a device as a ProcessFunc invoked once per period with
// non-interleaved float64 buffers. Adapters in this package convert from
// interleaved hardware formats, drive the period loop, and account for
// xruns and cpu load.
package device

import (
	"context"
	"errors"
)

// ErrClosed is returned by devices used after Close.
var ErrClosed = errors.New("device: closed")

// ProcessFunc computes one period of frames: it reads b.In and writes b.Out.
// It runs on the audio thread.
type ProcessFunc func(b *Buffers, frames int)

// Config describes the stream a device was opened with.
type Config struct {
	SampleRate     int
	PeriodSize     int
	InputChannels  int
	OutputChannels int
}

// Device is a blocking, period-based audio device. Read fills the capture
// channels of b with up to frames frames and returns how many were read;
// it returns io.EOF once a finite source is exhausted. Write plays the
// first frames frames of b's playback channels.
type Device interface {
	Config() Config
	Read(ctx context.Context, b *Buffers, frames int) (int, error)
	Write(ctx context.Context, b *Buffers, frames int) error
	Close() error
}
