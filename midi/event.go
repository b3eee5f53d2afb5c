package midi

import (
	"maps"
	"slices"

	"go-synth/dsp"
)

// NoteEvent is a note pressed or released on a controller
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
	On       bool
}

// Freq returns the equal-tempered frequency of the note
func (e NoteEvent) Freq() float64 {
	return dsp.MidiToFreq(float64(e.Note))
}

// NoteSink receives notes from controllers. synth.Engine satisfies it.
type NoteSink interface {
	PostNoteOn(freq, vel float64) bool
	PostNoteOff(freq float64) bool
}

// Forward delivers events to sink until events is closed, then releases
// any note still held so an unplugged controller leaves nothing sounding.
func Forward(events <-chan NoteEvent, sink NoteSink) {
	held := make(map[uint8]bool)
	for ev := range events {
		if ev.On {
			held[ev.Note] = true
			sink.PostNoteOn(ev.Freq(), float64(ev.Velocity))
		} else {
			delete(held, ev.Note)
			sink.PostNoteOff(ev.Freq())
		}
	}
	for _, note := range slices.Sorted(maps.Keys(held)) {
		sink.PostNoteOff(NoteEvent{Note: note}.Freq())
	}
}
