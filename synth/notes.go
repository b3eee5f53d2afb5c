package synth

import "math"

const (
	// silence is the envelope level under which a released voice can be reclaimed
	silence = 1e-5

	// epsilon nudges values like 1.005 that sit just under a rounding boundary
	epsilon = 2.220446049250313e-16
)

// Quantize rounds a frequency to two decimal places. Quantized frequencies
// are the identity of a note.
func Quantize(f float64) float64 {
	return math.Floor((f+epsilon)*100+0.5) / 100
}

// TriggeredNote is a note in its attack/decay/sustain phase
type TriggeredNote struct {
	Voice   int
	Freq    float64
	Vel     float64 // 0-1
	LastEnv float64
}

// ReleasingNote is a note past note-off whose voice is still sounding its tail
type ReleasingNote struct {
	Voice     int
	Freq      float64
	Vel       float64
	ReleaseAt int64 // sample counter value the release is scheduled to end
	LastEnv   float64
}

// Registry holds the triggered notes and the FIFO of releasing notes.
// Both slices are preallocated to the pool size so the audio path never grows them.
type Registry struct {
	Triggered []TriggeredNote
	Releasing []ReleasingNote
}

func newRegistry(voices int) Registry {
	return Registry{
		Triggered: make([]TriggeredNote, 0, voices),
		Releasing: make([]ReleasingNote, 0, voices),
	}
}

// findTriggered returns the index of the first triggered note at freq, or -1
func (r *Registry) findTriggered(freq float64) int {
	for i := range r.Triggered {
		if r.Triggered[i].Freq == freq {
			return i
		}
	}
	return -1
}

// IsTriggered reports whether a note with the quantized freq is sounding
func (r *Registry) IsTriggered(freq float64) bool {
	return r.findTriggered(Quantize(freq)) >= 0
}

// Active returns the number of voices held by triggered and releasing notes
func (r *Registry) Active() int {
	return len(r.Triggered) + len(r.Releasing)
}

func (r *Registry) removeTriggered(i int) {
	r.Triggered = append(r.Triggered[:i], r.Triggered[i+1:]...)
}

func (r *Registry) removeReleasing(i int) {
	r.Releasing = append(r.Releasing[:i], r.Releasing[i+1:]...)
}

// popOldestRelease drops the head of the release queue
func (r *Registry) popOldestRelease() (ReleasingNote, bool) {
	if len(r.Releasing) == 0 {
		return ReleasingNote{}, false
	}
	n := r.Releasing[0]
	r.removeReleasing(0)
	return n, true
}
