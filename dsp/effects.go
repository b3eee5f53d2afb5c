package dsp

import "math"

// LowPass is a resonant state-variable low-pass filter
type LowPass struct {
	sampleRate float64
	low, band  float64
}

func NewLowPass(sampleRate float64) *LowPass {
	return &LowPass{sampleRate: sampleRate}
}

// Process filters one sample. resonance runs 0-1, higher is peakier.
func (f *LowPass) Process(in, cutoff, resonance float64) float64 {
	cutoff = min(max(cutoff, 10), f.sampleRate/6)
	resonance = min(max(resonance, 0), 0.95)

	k := 2 * math.Sin(math.Pi*cutoff/f.sampleRate)
	damp := 2 * (1 - resonance)

	f.low += k * f.band
	high := in - f.low - damp*f.band
	f.band += k * high
	return f.low
}

func (f *LowPass) Reset() {
	f.low, f.band = 0, 0
}

// MaxDelaySamples bounds DelayLine.Process size (two seconds at 44.1kHz)
const MaxDelaySamples = 88200

// DelayLine is a feedback delay with a fixed maximum length
type DelayLine struct {
	buf []float64
	pos int
}

func NewDelayLine() *DelayLine {
	return &DelayLine{buf: make([]float64, MaxDelaySamples)}
}

// Process writes in to the line and returns the sample size samples ago.
// size is clamped to [1, MaxDelaySamples].
func (d *DelayLine) Process(in float64, size int, feedback float64) float64 {
	size = min(max(size, 1), len(d.buf))
	if d.pos >= size {
		d.pos = 0
	}
	out := d.buf[d.pos]
	d.buf[d.pos] = d.buf[d.pos]*feedback + in
	d.pos++
	return out
}

// Freeverb tunings at 44.1kHz
var (
	combTunings    = [...]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTunings = [...]int{556, 441, 341, 225}
)

type comb struct {
	buf         []float64
	pos         int
	filterStore float64
}

func (c *comb) process(in, feedback, damp float64) float64 {
	out := c.buf[c.pos]
	c.filterStore = out*(1-damp) + c.filterStore*damp
	c.buf[c.pos] = in + c.filterStore*feedback
	c.pos = (c.pos + 1) % len(c.buf)
	return out
}

type allpass struct {
	buf []float64
	pos int
}

func (a *allpass) process(in float64) float64 {
	bufOut := a.buf[a.pos]
	a.buf[a.pos] = in + bufOut*0.5
	a.pos = (a.pos + 1) % len(a.buf)
	return bufOut - in
}

// Reverb is a mono Schroeder/Moorer reverb in the Freeverb layout
type Reverb struct {
	combs     [len(combTunings)]comb
	allpasses [len(allpassTunings)]allpass
}

func NewReverb(sampleRate float64) *Reverb {
	scale := sampleRate / 44100
	r := &Reverb{}
	for i, n := range combTunings {
		r.combs[i].buf = make([]float64, max(int(float64(n)*scale), 1))
	}
	for i, n := range allpassTunings {
		r.allpasses[i].buf = make([]float64, max(int(float64(n)*scale), 1))
	}
	return r
}

// Process returns the wet signal for one input sample. roomSize and damp run 0-1.
func (r *Reverb) Process(in, roomSize, damp float64) float64 {
	feedback := min(max(roomSize, 0), 1)*0.28 + 0.7
	in *= 0.015

	var out float64
	for i := range r.combs {
		out += r.combs[i].process(in, feedback, damp)
	}
	for i := range r.allpasses {
		out = r.allpasses[i].process(out)
	}
	return out
}

// Pan splits a mono sample into left/right with equal-sum gains. pan runs 0 (left) to 1 (right).
func Pan(in, pan float64) (l, r float64) {
	pan = min(max(pan, 0), 1)
	return in * (1 - pan), in * pan
}
