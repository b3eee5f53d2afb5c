package synth

import (
	"errors"
	"fmt"
)

// ErrUnsortedSequence is returned for sequences whose ticks decrease
var ErrUnsortedSequence = errors.New("sequence ticks must be non-decreasing")

// Transport is the sequencer state: play-head, cursor into the sequence and
// the sample counter used for release scheduling.
type Transport struct {
	Sequence []Command

	PlayHead int64 // ticks, restarts at LoopStartTicks on wraparound
	Cursor   int   // next sequence entry to dispatch
	Sample   int64 // sample counter, only rewound to LoopStartSamples on wraparound

	LoopTicks        int64 // <= 0 disables wraparound
	LoopSamples      int64
	LoopStartTicks   int64
	LoopStartSamples int64

	Loops int // completed wraparounds
}

// ValidateSequence checks that ticks never decrease and kinds are known
func ValidateSequence(seq []Command) error {
	for i, c := range seq {
		if c.Kind != CmdNoteOn && c.Kind != CmdNoteOff {
			return fmt.Errorf("entry %d: unknown command kind %d", i, c.Kind)
		}
		if i > 0 && c.Tick < seq[i-1].Tick {
			return fmt.Errorf("entry %d: tick %d after %d: %w", i, c.Tick, seq[i-1].Tick, ErrUnsortedSequence)
		}
	}
	return nil
}

// SetSequence replaces the active sequence after releasing every sounding
// note. An invalid sequence is rejected and leaves the engine untouched.
// The cursor is left where it is so a running play-head carries on.
func (e *Engine) SetSequence(seq []Command) error {
	return e.setSequence(e.params.Load(), seq)
}

func (e *Engine) setSequence(p *Params, seq []Command) error {
	if err := ValidateSequence(seq); err != nil {
		return err
	}
	e.releaseAll(p)
	e.tr.Sequence = seq
	return nil
}

// SetLoop sets the loop length in ticks and samples
func (e *Engine) SetLoop(ticks, samples int64) {
	e.tr.LoopTicks = ticks
	e.tr.LoopSamples = samples
}

// SetLoopStart sets where the play-head and sample counter restart on wraparound
func (e *Engine) SetLoopStart(ticks, samples int64) {
	e.tr.LoopStartTicks = ticks
	e.tr.LoopStartSamples = samples
}

// Rewind puts the transport back at the start of the sequence
func (e *Engine) Rewind() {
	e.rewind(e.params.Load())
}

func (e *Engine) rewind(p *Params) {
	e.releaseAll(p)
	e.tr.PlayHead = e.tr.LoopStartTicks
	e.tr.Sample = e.tr.LoopStartSamples
	e.tr.Cursor = 0
	e.tickPhase = 0
}

// Tick advances the sequencer by one tick, restarting the loop when the
// play-head reaches the loop length and dispatching every entry now due.
func (e *Engine) Tick() {
	e.tick(e.params.Load())
}

func (e *Engine) tick(p *Params) {
	if e.tr.LoopTicks > 0 && e.tr.PlayHead >= e.tr.LoopTicks {
		e.restartLoop(p)
	}
	e.dispatchDue(p)
	e.tr.PlayHead++
}

// dispatchDue runs sequence entries scheduled strictly before the play-head
func (e *Engine) dispatchDue(p *Params) {
	for e.tr.Cursor < len(e.tr.Sequence) && e.tr.Sequence[e.tr.Cursor].Tick < e.tr.PlayHead {
		e.handleCmd(p, e.tr.Sequence[e.tr.Cursor])
		e.tr.Cursor++
	}
}

// restartLoop wraps release times into the new loop, stops sounding notes
// and rewinds, replaying anything due at the loop point.
func (e *Engine) restartLoop(p *Params) {
	if e.tr.LoopSamples > 0 {
		rel := e.pool.notes.Releasing
		for i := range rel {
			rel[i].ReleaseAt %= e.tr.LoopSamples
		}
	}
	e.releaseAll(p)

	e.tr.Sample = e.tr.LoopStartSamples
	e.tr.Cursor = 0
	e.tr.PlayHead = e.tr.LoopStartTicks
	e.tr.Loops++

	e.dispatchDue(p)
}
