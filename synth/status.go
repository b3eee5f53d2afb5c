package synth

import "go-synth/debug"

// VoiceStatus is one voice as seen by the UI
type VoiceStatus struct {
	State VoiceState
	Freq  float64
	Env   float64
}

// Status is an immutable snapshot of the engine published once per block
type Status struct {
	Loaded         bool
	Poly           bool
	PlayHead       int64
	LoopTicks      int64
	LoopStartTicks int64
	Sample         int64
	Loops          int
	SeqLen         int

	Voices []VoiceStatus

	Dropped uint64
	Stolen  uint64
	Lost    uint64
}

// Snapshot builds a Status from the current state. Audio goroutine only.
func (e *Engine) Snapshot() *Status {
	p := e.params.Load()
	s := &Status{
		Loaded:         p.Len() > 0,
		Poly:           p.Poly(),
		PlayHead:       e.tr.PlayHead,
		LoopTicks:      e.tr.LoopTicks,
		LoopStartTicks: e.tr.LoopStartTicks,
		Sample:         e.tr.Sample,
		Loops:          e.tr.Loops,
		SeqLen:         len(e.tr.Sequence),
		Voices:         make([]VoiceStatus, e.pool.Size()),
		Dropped:        e.dropped,
		Stolen:         e.pool.Stolen,
		Lost:           e.lost.Load(),
	}
	for _, t := range e.pool.notes.Triggered {
		s.Voices[t.Voice] = VoiceStatus{State: VoiceTriggered, Freq: t.Freq, Env: t.LastEnv}
	}
	for _, r := range e.pool.notes.Releasing {
		s.Voices[r.Voice] = VoiceStatus{State: VoiceReleasing, Freq: r.Freq, Env: r.LastEnv}
	}
	return s
}

// publish stores a fresh snapshot and signals UpdateChan
func (e *Engine) publish() {
	e.status.Store(e.Snapshot())
	select {
	case e.UpdateChan <- struct{}{}:
	default:
	}
}

// Status returns the latest published snapshot, or nil before the first block.
// Safe from any goroutine.
func (e *Engine) Status() *Status {
	return e.status.Load()
}

// LogChanges writes what happened between two snapshots to the debug log.
// The audio goroutine only counts drops, steals, lost events and loops;
// call this from the goroutine that reads Status. prev may be nil.
func LogChanges(prev, cur *Status) {
	if cur == nil {
		return
	}
	if prev == nil {
		prev = &Status{}
	}
	if cur.Dropped > prev.Dropped {
		debug.Log("voice", "pool full, dropped %d note-ons (total %d)", cur.Dropped-prev.Dropped, cur.Dropped)
	}
	if cur.Stolen > prev.Stolen {
		debug.Log("voice", "stole %d releasing voices (total %d)", cur.Stolen-prev.Stolen, cur.Stolen)
	}
	if cur.Lost > prev.Lost {
		debug.Log("ctrl", "control queue full, lost %d events (total %d)", cur.Lost-prev.Lost, cur.Lost)
	}
	if cur.Loops != prev.Loops {
		debug.Log("seq", "loop %d, %d events", cur.Loops, cur.SeqLen)
	}
}
