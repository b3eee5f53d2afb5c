package dsp

type envStage int

const (
	envIdle envStage = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// Envelope is a linear ADSR. It is driven by a gate passed on every call:
// a rising gate restarts the attack from the current level, a falling gate
// starts the release.
type Envelope struct {
	sampleRate float64

	attack  float64 // ms
	decay   float64 // ms
	sustain float64 // level 0-1
	release float64 // ms

	stage   envStage
	level   float64
	gate    bool
	relStep float64
	relLeft float64 // samples until the release reaches zero
}

// NewEnvelope creates an idle envelope with short default times
func NewEnvelope(sampleRate float64) *Envelope {
	return &Envelope{
		sampleRate: sampleRate,
		attack:     5,
		decay:      50,
		sustain:    1,
		release:    100,
	}
}

func (e *Envelope) SetAttack(ms float64)  { e.attack = max(ms, 0) }
func (e *Envelope) SetDecay(ms float64)   { e.decay = max(ms, 0) }
func (e *Envelope) SetRelease(ms float64) { e.release = max(ms, 0) }

func (e *Envelope) SetSustain(level float64) {
	e.sustain = min(max(level, 0), 1)
}

// Level returns the current level without advancing
func (e *Envelope) Level() float64 {
	return e.level
}

// Next advances the envelope one sample for the given gate and returns its level
func (e *Envelope) Next(gate bool) float64 {
	if gate && !e.gate {
		e.stage = envAttack
	} else if !gate && e.gate {
		e.stage = envRelease
		e.relLeft = e.samples(e.release)
		e.relStep = e.level / e.relLeft
	}
	e.gate = gate

	switch e.stage {
	case envAttack:
		e.level += 1 / e.samples(e.attack)
		if e.level >= 1 {
			e.level = 1
			e.stage = envDecay
		}
	case envDecay:
		e.level -= (1 - e.sustain) / e.samples(e.decay)
		if e.level <= e.sustain {
			e.level = e.sustain
			e.stage = envSustain
		}
	case envSustain:
		e.level = e.sustain
	case envRelease:
		e.level -= e.relStep
		e.relLeft--
		if e.level <= 0 || e.relLeft <= 0 {
			e.level = 0
			e.stage = envIdle
		}
	case envIdle:
		e.level = 0
	}
	return e.level
}

// samples converts ms to a sample count, never less than one
func (e *Envelope) samples(ms float64) float64 {
	return max(ms/1000*e.sampleRate, 1)
}
