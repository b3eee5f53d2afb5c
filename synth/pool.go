package synth

import (
	"errors"

	"go-synth/dsp"
)

// ErrNoVoices is returned when a pool is built with fewer than one voice
var ErrNoVoices = errors.New("voice count must be at least 1")

// Oscillator produces one waveform sample per call
type Oscillator interface {
	Next(w dsp.Waveform, freq float64) float64
}

// Envelope produces one amplitude per call for the given trigger state.
// Times are in milliseconds, sustain is a level.
type Envelope interface {
	SetAttack(ms float64)
	SetDecay(ms float64)
	SetSustain(level float64)
	SetRelease(ms float64)
	Next(trigger bool) float64
}

// Voice is one oscillator+envelope pair. Index is fixed for the pool's lifetime.
type Voice struct {
	Index   int
	Osc     Oscillator
	Env     Envelope
	Trigger bool
}

// VoiceState says which collection, if any, currently holds a voice
type VoiceState int

const (
	VoiceFree VoiceState = iota
	VoiceTriggered
	VoiceReleasing
)

func (s VoiceState) String() string {
	switch s {
	case VoiceTriggered:
		return "triggered"
	case VoiceReleasing:
		return "releasing"
	default:
		return "free"
	}
}

// Pool owns a fixed set of voices and the registry of notes holding them
type Pool struct {
	voices []Voice
	notes  Registry
	inUse  []bool // scratch for Allocate

	// Stolen counts releasing notes evicted to make room
	Stolen uint64
}

// NewPool builds n voices, each with its own oscillator and envelope
func NewPool(n int, newOsc func(i int) Oscillator, newEnv func(i int) Envelope) (*Pool, error) {
	if n < 1 {
		return nil, ErrNoVoices
	}
	p := &Pool{
		voices: make([]Voice, n),
		notes:  newRegistry(n),
		inUse:  make([]bool, n),
	}
	for i := range p.voices {
		p.voices[i] = Voice{Index: i, Osc: newOsc(i), Env: newEnv(i)}
	}
	return p, nil
}

// Size returns the number of voices
func (p *Pool) Size() int {
	return len(p.voices)
}

// Voice returns the voice at index i
func (p *Pool) Voice(i int) *Voice {
	return &p.voices[i]
}

// Notes exposes the registry for inspection
func (p *Pool) Notes() *Registry {
	return &p.notes
}

// Allocate returns the lowest free voice index. When every voice is held it
// evicts the oldest releasing note and scans again. It fails only when all
// voices belong to triggered notes.
func (p *Pool) Allocate() (int, bool) {
	if i, ok := p.scanFree(); ok {
		return i, true
	}
	if _, ok := p.notes.popOldestRelease(); !ok {
		return -1, false
	}
	p.Stolen++
	return p.scanFree()
}

func (p *Pool) scanFree() (int, bool) {
	clear(p.inUse)
	for _, t := range p.notes.Triggered {
		p.inUse[t.Voice] = true
	}
	for _, r := range p.notes.Releasing {
		p.inUse[r.Voice] = true
	}
	for i, used := range p.inUse {
		if !used {
			return i, true
		}
	}
	return -1, false
}

// State reports which collection holds voice i
func (p *Pool) State(i int) VoiceState {
	for _, t := range p.notes.Triggered {
		if t.Voice == i {
			return VoiceTriggered
		}
	}
	for _, r := range p.notes.Releasing {
		if r.Voice == i {
			return VoiceReleasing
		}
	}
	return VoiceFree
}
