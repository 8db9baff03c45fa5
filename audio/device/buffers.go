package device

// Buffers holds the non-interleaved capture and playback channels of one
// period. In is filled by the device before processing; Out is read after.
type Buffers struct {
	In  [][]float64
	Out [][]float64
}

// NewBuffers allocates buffers for numIn capture and numOut playback channels
// of periodSize frames each.
func NewBuffers(numIn, numOut, periodSize int) *Buffers {
	return &Buffers{
		In:  allocChannels(numIn, periodSize),
		Out: allocChannels(numOut, periodSize),
	}
}

func allocChannels(n, size int) [][]float64 {
	backing := make([]float64, n*size)
	chans := make([][]float64, n)

	for i := range chans {
		chans[i] = backing[i*size : (i+1)*size : (i+1)*size]
	}

	return chans
}

// ClearOut zeroes the first frames of every playback channel.
func (b *Buffers) ClearOut(frames int) {
	for _, ch := range b.Out {
		clear(ch[:frames])
	}
}
