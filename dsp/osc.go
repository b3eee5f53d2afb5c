package dsp

import (
	"math"
	"math/rand/v2"
)

// Waveform selects the shape an Osc produces
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Saw
	Square
	Noise
)

// WaveformFromIndex maps a patch selector value to a waveform.
// Unknown values fall back to Sine.
func WaveformFromIndex(v float64) Waveform {
	switch int(v) {
	case 1:
		return Triangle
	case 2:
		return Saw
	case 3:
		return Square
	case 4:
		return Noise
	default:
		return Sine
	}
}

func (w Waveform) String() string {
	switch w {
	case Triangle:
		return "triangle"
	case Saw:
		return "saw"
	case Square:
		return "square"
	case Noise:
		return "noise"
	default:
		return "sine"
	}
}

// Osc is a phase-accumulating oscillator. One Osc keeps one phase, so a
// voice should own its own instance.
type Osc struct {
	sampleRate float64
	phase      float64 // 0-1
	rng        *rand.Rand
}

// NewOsc creates an oscillator for the given sample rate
func NewOsc(sampleRate float64, seed uint64) *Osc {
	return &Osc{
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next advances the phase by one sample and returns the waveform value in [-1, 1].
// freq is ignored for Noise.
func (o *Osc) Next(w Waveform, freq float64) float64 {
	if w == Noise {
		return o.rng.Float64()*2 - 1
	}

	p := o.phase
	o.phase += freq / o.sampleRate
	o.phase -= math.Floor(o.phase)

	switch w {
	case Triangle:
		if p < 0.5 {
			return 4*p - 1
		}
		return 3 - 4*p
	case Saw:
		return 2*p - 1
	case Square:
		if p < 0.5 {
			return 1
		}
		return -1
	default:
		return math.Sin(2 * math.Pi * p)
	}
}

// Reset puts the phase back to zero
func (o *Osc) Reset() {
	o.phase = 0
}

// MidiToFreq converts a (possibly fractional) MIDI note number to Hz, A4 = 69 = 440Hz
func MidiToFreq(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}
