// Package audio moves engine output to the sound card.
package audio

import (
	"encoding/binary"
	"math"
)

// Channels is fixed at stereo
const Channels = 2

// Source fills interleaved stereo float32 frames. synth.Engine satisfies it.
type Source interface {
	Process(buf []float32)
}

// fill renders len(p)/4 samples from src into p as float32 little endian.
// scratch is reused when large enough and returned for the next call.
func fill(p []byte, src Source, scratch []float32) []float32 {
	n := len(p) / 4
	n -= n % Channels
	if cap(scratch) < n {
		scratch = make([]float32, n)
	}
	samples := scratch[:n]

	if src == nil {
		clear(samples)
	} else {
		src.Process(samples)
	}
	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	clear(p[n*4:])
	return scratch
}

// Levels returns the peak and RMS of buf
func Levels(buf []float32) (peak, rms float64) {
	if len(buf) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range buf {
		v := float64(s)
		peak = max(peak, math.Abs(v))
		sum += v * v
	}
	return peak, math.Sqrt(sum / float64(len(buf)))
}
