package device

// Deinterleave splits frames frames of interleaved src into the channels
// of dst. Channels beyond the interleaved stride are cleared.
func Deinterleave(dst [][]float64, src []float64, channels, frames int) {
	for ch, out := range dst {
		if ch >= channels {
			clear(out[:frames])
			continue
		}

		for i := range frames {
			out[i] = src[i*channels+ch]
		}
	}
}

// Interleave writes frames frames of the channels of src into dst with a
// stride of channels. Missing source channels are written as silence.
func Interleave(dst []float64, src [][]float64, channels, frames int) {
	for ch := range channels {
		if ch >= len(src) {
			for i := range frames {
				dst[i*channels+ch] = 0
			}

			continue
		}

		in := src[ch]
		for i := range frames {
			dst[i*channels+ch] = in[i]
		}
	}
}

// DeinterleaveFloat32 is Deinterleave for float32 hardware buffers.
func DeinterleaveFloat32(dst [][]float64, src []float32, channels, frames int) {
	for ch, out := range dst {
		if ch >= channels {
			clear(out[:frames])
			continue
		}

		for i := range frames {
			out[i] = float64(src[i*channels+ch])
		}
	}
}

// InterleaveFloat32 is Interleave for float32 hardware buffers.
func InterleaveFloat32(dst []float32, src [][]float64, channels, frames int) {
	for ch := range channels {
		for i := range frames {
			var v float64
			if ch < len(src) {
				v = src[ch][i]
			}

			dst[i*channels+ch] = float32(v)
		}
	}
}
