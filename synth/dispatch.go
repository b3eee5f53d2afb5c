package synth

import "math"

// CommandKind tags a Command
type CommandKind uint8

const (
	CmdNoteOn CommandKind = iota + 1
	CmdNoteOff
)

func (k CommandKind) String() string {
	switch k {
	case CmdNoteOn:
		return "noteon"
	case CmdNoteOff:
		return "noteoff"
	default:
		return "unknown"
	}
}

// Command is one note event, either from a sequence (at Tick) or live
type Command struct {
	Tick int64
	Kind CommandKind
	Freq float64
	Vel  float64 // 0-127, ignored for CmdNoteOff
}

// Defaults for external note-ons that leave a field out
const (
	DefaultFreq     = 440.0
	DefaultVelocity = 127.0
)

// HandleCmd applies a command to the pool. It does nothing while no
// parameters are loaded.
func (e *Engine) HandleCmd(c Command) {
	e.handleCmd(e.params.Load(), c)
}

// NoteOn dispatches a note-on as if it came from the sequence
func (e *Engine) NoteOn(freq, vel float64) {
	e.HandleCmd(Command{Kind: CmdNoteOn, Freq: freq, Vel: vel})
}

// NoteOff dispatches a note-off as if it came from the sequence
func (e *Engine) NoteOff(freq float64) {
	e.HandleCmd(Command{Kind: CmdNoteOff, Freq: freq})
}

func (e *Engine) handleCmd(p *Params, c Command) {
	if p.Len() == 0 {
		return
	}
	switch c.Kind {
	case CmdNoteOn:
		e.noteOn(p, c.Freq, c.Vel)
	case CmdNoteOff:
		e.noteOff(p, c.Freq)
	}
}

func (e *Engine) noteOn(p *Params, freq, vel float64) {
	if !p.Poly() {
		// Mono: the incoming pitch only gates the two fixed oscillators
		e.releaseAll(p)
		e.trigger(p, Quantize(p.Get(ParamFrequency)), vel)
		e.trigger(p, Quantize(p.Get(ParamFrequency2)), vel)
		return
	}

	f := Quantize(freq)
	if e.pool.notes.findTriggered(f) >= 0 {
		return
	}
	e.trigger(p, f, vel)
}

func (e *Engine) noteOff(p *Params, freq float64) {
	if !p.Poly() {
		e.releaseAll(p)
		return
	}

	i := e.pool.notes.findTriggered(Quantize(freq))
	if i < 0 {
		return
	}
	e.release(p, e.pool.notes.Triggered[i])
	e.pool.notes.removeTriggered(i)
}

// trigger allocates a voice, configures its envelope from p and records the note.
// A full pool drops the note. Drops and steals are only counted here; see LogChanges.
func (e *Engine) trigger(p *Params, freq, vel float64) {
	o, ok := e.pool.Allocate()
	if !ok {
		e.dropped++
		return
	}

	v := &e.pool.voices[o]
	v.Env.SetAttack(p.Get(ParamAttack))
	v.Env.SetDecay(p.Get(ParamDecay))
	v.Env.SetSustain(p.Get(ParamSustain))
	v.Env.SetRelease(p.Get(ParamRelease))
	v.Trigger = true
	e.pool.notes.Triggered = append(e.pool.notes.Triggered, TriggeredNote{
		Voice: o,
		Freq:  freq,
		Vel:   vel / 127,
	})
}

// release schedules the end of t's release tail and turns its trigger off.
// The caller removes t from the triggered set.
func (e *Engine) release(p *Params, t TriggeredNote) {
	releaseMs := p.Get(ParamRelease)
	at := math.Floor(float64(e.tr.Sample) + releaseMs/1000*e.sampleRate + 0.5)

	e.pool.voices[t.Voice].Trigger = false
	e.pool.notes.Releasing = append(e.pool.notes.Releasing, ReleasingNote{
		Voice:     t.Voice,
		Freq:      t.Freq,
		Vel:       t.Vel,
		ReleaseAt: int64(at),
		LastEnv:   t.LastEnv,
	})
}

// ReleaseAll moves every triggered note into the release queue, in registry order
func (e *Engine) ReleaseAll() {
	e.releaseAll(e.params.Load())
}

func (e *Engine) releaseAll(p *Params) {
	notes := &e.pool.notes
	for _, t := range notes.Triggered {
		e.release(p, t)
	}
	notes.Triggered = notes.Triggered[:0]
}

// ExternalNoteOn is the guarded entry point for live note-ons. A frequency
// or velocity <= 0 means it was left out and takes DefaultFreq or
// DefaultVelocity. The note is dropped when the frequency is already
// sounding (poly) or any note is sounding (mono).
func (e *Engine) ExternalNoteOn(freq, vel float64) {
	e.externalNoteOn(e.params.Load(), freq, vel)
}

// ExternalNoteOff is the guarded entry point for live note-offs. In poly mode
// it is dropped when nothing sounds at freq.
func (e *Engine) ExternalNoteOff(freq float64) {
	e.externalNoteOff(e.params.Load(), freq)
}

func (e *Engine) externalNoteOn(p *Params, freq, vel float64) {
	if p.Len() == 0 {
		return
	}
	if freq <= 0 {
		freq = DefaultFreq
	}
	if vel <= 0 {
		vel = DefaultVelocity
	}
	if e.isTriggered(p, freq) {
		return
	}
	e.noteOn(p, freq, vel)
}

func (e *Engine) externalNoteOff(p *Params, freq float64) {
	if p.Len() == 0 {
		return
	}
	if p.Poly() && !e.pool.notes.IsTriggered(freq) {
		return
	}
	e.noteOff(p, freq)
}

func (e *Engine) isTriggered(p *Params, freq float64) bool {
	if p.Poly() {
		return e.pool.notes.IsTriggered(freq)
	}
	return len(e.pool.notes.Triggered) > 0
}

// OnStop releases every sounding note
func (e *Engine) OnStop() {
	e.ReleaseAll()
}
