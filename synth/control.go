package synth

import "errors"

// ErrQueueFull is returned when a control event could not be queued
var ErrQueueFull = errors.New("control queue full")

// ControlKind tags a Control event
type ControlKind uint8

const (
	CtlNoteOn ControlKind = iota + 1
	CtlNoteOff
	CtlSequence
	CtlStop
	CtlRewind
	CtlLoop
	CtlSong // loop settings, sequence and rewind applied together
)

// Control is an event handed from another goroutine to the audio goroutine.
// Only the fields relevant to Kind are read.
type Control struct {
	Kind ControlKind

	Freq float64
	Vel  float64

	Sequence []Command

	LoopTicks, LoopSamples           int64
	LoopStartTicks, LoopStartSamples int64
}

// Post queues c for the next Step without blocking. It returns false and
// counts the event as lost when the queue is full.
func (e *Engine) Post(c Control) bool {
	select {
	case e.ctrl <- c:
		return true
	default:
		e.lost.Add(1)
		return false
	}
}

// PostNoteOn queues a guarded external note-on
func (e *Engine) PostNoteOn(freq, vel float64) bool {
	return e.Post(Control{Kind: CtlNoteOn, Freq: freq, Vel: vel})
}

// PostNoteOff queues a guarded external note-off
func (e *Engine) PostNoteOff(freq float64) bool {
	return e.Post(Control{Kind: CtlNoteOff, Freq: freq})
}

// PostSequence validates seq on the caller's goroutine, then queues it
func (e *Engine) PostSequence(seq []Command) error {
	return e.postValidated(Control{Kind: CtlSequence, Sequence: seq})
}

// PostSong validates c.Sequence and queues it with c's loop settings as one
// CtlSong event, so the engine sees all of it or none of it.
func (e *Engine) PostSong(c Control) error {
	c.Kind = CtlSong
	return e.postValidated(c)
}

func (e *Engine) postValidated(c Control) error {
	if err := ValidateSequence(c.Sequence); err != nil {
		return err
	}
	if !e.Post(c) {
		return ErrQueueFull
	}
	return nil
}

// drain applies every queued control event
func (e *Engine) drain(p *Params) {
	for {
		select {
		case c := <-e.ctrl:
			e.apply(p, c)
		default:
			return
		}
	}
}

func (e *Engine) apply(p *Params, c Control) {
	switch c.Kind {
	case CtlNoteOn:
		e.externalNoteOn(p, c.Freq, c.Vel)
	case CtlNoteOff:
		e.externalNoteOff(p, c.Freq)
	case CtlSequence:
		// already validated by postValidated
		_ = e.setSequence(p, c.Sequence)
	case CtlStop:
		e.releaseAll(p)
	case CtlRewind:
		e.rewind(p)
	case CtlLoop:
		e.SetLoop(c.LoopTicks, c.LoopSamples)
		e.SetLoopStart(c.LoopStartTicks, c.LoopStartSamples)
	case CtlSong:
		e.SetLoop(c.LoopTicks, c.LoopSamples)
		e.SetLoopStart(c.LoopStartTicks, c.LoopStartSamples)
		_ = e.setSequence(p, c.Sequence)
		e.rewind(p)
	}
}
