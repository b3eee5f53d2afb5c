package synth

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-synth/debug"
	"go-synth/dsp"
)

// fakeEnv jumps to 1 while triggered and falls by step per call after
type fakeEnv struct {
	level float64
	step  float64

	attack, decay, sustain, release float64
}

func (f *fakeEnv) SetAttack(ms float64)     { f.attack = ms }
func (f *fakeEnv) SetDecay(ms float64)      { f.decay = ms }
func (f *fakeEnv) SetSustain(level float64) { f.sustain = level }
func (f *fakeEnv) SetRelease(ms float64)    { f.release = ms }

func (f *fakeEnv) Next(trigger bool) float64 {
	if trigger {
		f.level = 1
	} else {
		f.level = max(f.level-f.step, 0)
	}
	return f.level
}

type fakeOsc struct{}

func (fakeOsc) Next(dsp.Waveform, float64) float64 { return 1 }

// sumPatch outputs env*vel per note with no post stage
type sumPatch struct{ prepared int }

func (s *sumPatch) Prepare(*Params) { s.prepared++ }

func (s *sumPatch) Note(_ *Params, _ *Voice, env, _, vel float64) float64 {
	return env * vel
}

func (s *sumPatch) Finish(_ *Params, sum float64) Frame {
	return Frame{sum, sum}
}

func polyParams() *Params {
	return NewParams(map[string]float64{
		ParamPoly:       1,
		ParamAttack:     1,
		ParamDecay:      1,
		ParamSustain:    1,
		ParamRelease:    500,
		ParamFrequency:  110,
		ParamFrequency2: 165,
	})
}

func newTestEngine(t *testing.T, voices int, envStep float64) (*Engine, []*fakeEnv) {
	t.Helper()
	envs := make([]*fakeEnv, voices)
	e, err := NewEngine(Options{
		Voices:        voices,
		SampleRate:    44100,
		NewOscillator: func(int) Oscillator { return fakeOsc{} },
		NewEnvelope: func(i int) Envelope {
			envs[i] = &fakeEnv{step: envStep}
			return envs[i]
		},
		Patch: &sumPatch{},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.SetParams(polyParams())
	return e, envs
}

// checkInvariants fails when a voice is held twice or the pool is overcommitted
func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()
	seen := map[int]string{}
	notes := e.Pool().Notes()
	for _, n := range notes.Triggered {
		if prev, ok := seen[n.Voice]; ok {
			t.Fatalf("voice %d held by %s and triggered", n.Voice, prev)
		}
		seen[n.Voice] = "triggered"
	}
	for _, n := range notes.Releasing {
		if prev, ok := seen[n.Voice]; ok {
			t.Fatalf("voice %d held by %s and releasing", n.Voice, prev)
		}
		seen[n.Voice] = "releasing"
	}
	if notes.Active() > e.Pool().Size() {
		t.Fatalf("%d notes for %d voices", notes.Active(), e.Pool().Size())
	}
}

func triggeredFreqs(e *Engine) []float64 {
	var out []float64
	for _, n := range e.Pool().Notes().Triggered {
		out = append(out, n.Freq)
	}
	return out
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{440, 440},
		{440.004, 440},
		{440.001, 440},
		{440.006, 440.01},
		{261.6255653, 261.63},
		{1.005, 1.01},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestVoiceCapDropsExtraNotes(t *testing.T) {
	const n = 4
	e, _ := newTestEngine(t, n, 1)

	for i := 0; i <= n; i++ {
		e.NoteOn(100+float64(i)*10, 127)
	}

	if got := len(e.Pool().Notes().Triggered); got != n {
		t.Fatalf("triggered = %d, want %d", got, n)
	}
	if e.Snapshot().Dropped != 1 {
		t.Errorf("dropped = %d, want 1", e.Snapshot().Dropped)
	}
	if e.Pool().Notes().IsTriggered(140) {
		t.Error("the fifth note should not sound")
	}
	checkInvariants(t, e)
}

func TestStealsOldestReleasingVoice(t *testing.T) {
	e, _ := newTestEngine(t, 2, 0)

	e.NoteOn(100, 127)
	e.NoteOn(200, 127)
	f1Voice := e.Pool().Notes().Triggered[0].Voice

	e.NoteOff(100)
	if len(e.Pool().Notes().Releasing) != 1 {
		t.Fatalf("releasing = %d, want 1", len(e.Pool().Notes().Releasing))
	}

	e.NoteOn(300, 127)

	notes := e.Pool().Notes()
	i := notes.findTriggered(300)
	if i < 0 {
		t.Fatal("f3 not triggered")
	}
	if notes.Triggered[i].Voice != f1Voice {
		t.Errorf("f3 voice = %d, want f1's voice %d", notes.Triggered[i].Voice, f1Voice)
	}
	for _, r := range notes.Releasing {
		if r.Freq == 100 {
			t.Error("f1 should have been evicted from the releasing set")
		}
	}
	if e.Pool().Stolen != 1 {
		t.Errorf("stolen = %d, want 1", e.Pool().Stolen)
	}
	checkInvariants(t, e)
}

func TestStealOrderIsFIFO(t *testing.T) {
	e, _ := newTestEngine(t, 3, 0)

	e.NoteOn(100, 127)
	e.NoteOn(200, 127)
	e.NoteOn(300, 127)
	e.NoteOff(200)
	e.NoteOff(100)

	e.NoteOn(400, 127)

	var left []float64
	for _, r := range e.Pool().Notes().Releasing {
		left = append(left, r.Freq)
	}
	if len(left) != 1 || left[0] != 100 {
		t.Errorf("releasing after steal = %v, want [100]", left)
	}
}

func TestNoteOnDedup(t *testing.T) {
	e, _ := newTestEngine(t, 4, 1)

	e.NoteOn(440.001, 127)
	e.NoteOn(440.004, 127)

	if got := len(e.Pool().Notes().Triggered); got != 1 {
		t.Fatalf("triggered = %d, want 1", got)
	}
	if f := e.Pool().Notes().Triggered[0].Freq; f != 440 {
		t.Errorf("freq = %v, want 440", f)
	}

	e.NoteOff(440.002)
	if len(e.Pool().Notes().Triggered) != 0 {
		t.Error("note-off within rounding should release the note")
	}
}

func TestNoteOnConfiguresEnvelope(t *testing.T) {
	e, envs := newTestEngine(t, 2, 1)
	e.SetParams(polyParams().With(ParamAttack, 12).With(ParamSustain, 0.4))

	e.NoteOn(440, 63.5)

	n := e.Pool().Notes().Triggered[0]
	env := envs[n.Voice]
	if env.attack != 12 || env.sustain != 0.4 || env.release != 500 {
		t.Errorf("envelope = %+v", env)
	}
	if n.Vel != 0.5 {
		t.Errorf("velocity = %v, want 0.5", n.Vel)
	}
	if !e.Pool().Voice(n.Voice).Trigger {
		t.Error("voice trigger should be on")
	}
}

func TestNoteOffUnknownIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, 2, 1)
	e.NoteOn(440, 127)
	e.NoteOff(550)

	if len(e.Pool().Notes().Triggered) != 1 || len(e.Pool().Notes().Releasing) != 0 {
		t.Error("note-off for an untriggered frequency changed state")
	}
}

func TestReleaseSchedule(t *testing.T) {
	e, _ := newTestEngine(t, 2, 1)
	e.NoteOn(440, 127)
	e.Transport().Sample = 1000

	e.NoteOff(440)

	rel := e.Pool().Notes().Releasing
	if len(rel) != 1 {
		t.Fatalf("releasing = %d, want 1", len(rel))
	}
	if rel[0].ReleaseAt != 23050 {
		t.Errorf("ReleaseAt = %d, want 23050", rel[0].ReleaseAt)
	}
	if e.Pool().Voice(rel[0].Voice).Trigger {
		t.Error("trigger should be off after release")
	}
}

func TestReclaimWaitsForScheduleAndSilence(t *testing.T) {
	e, envs := newTestEngine(t, 2, 0.5)
	e.SetParams(polyParams().With(ParamRelease, 0))

	e.NoteOn(440, 127)
	e.Signal()
	e.NoteOff(440)
	voice := e.Pool().Notes().Releasing[0].Voice

	// scheduled end is sample 0; envelope still at 1 from the last mix
	e.OnSample()
	if len(e.Pool().Notes().Releasing) != 1 {
		t.Fatal("reclaimed while the envelope was still loud")
	}

	e.Signal() // 0.5
	e.OnSample()
	if len(e.Pool().Notes().Releasing) != 1 {
		t.Fatal("reclaimed at half level")
	}

	e.Signal() // 0
	e.OnSample()
	if len(e.Pool().Notes().Releasing) != 0 {
		t.Fatalf("not reclaimed, env=%v", envs[voice].level)
	}
	if e.Pool().State(voice) != VoiceFree {
		t.Error("voice should be free")
	}
}

func TestReclaimWaitsForScheduledTime(t *testing.T) {
	e, _ := newTestEngine(t, 2, 1)
	e.SetParams(polyParams().With(ParamRelease, 1)) // 44.1 -> 44 samples

	e.NoteOn(440, 127)
	e.NoteOff(440)
	for i := 0; i < 44; i++ {
		e.Signal()
		e.OnSample()
	}
	if len(e.Pool().Notes().Releasing) != 1 {
		t.Fatal("reclaimed before the scheduled release time")
	}
	e.Signal()
	e.OnSample()
	if len(e.Pool().Notes().Releasing) != 0 {
		t.Error("not reclaimed one sample after the scheduled time")
	}
}

func TestLoopWrapsReleaseTimes(t *testing.T) {
	e, _ := newTestEngine(t, 4, 0)
	e.SetLoop(8, 40)

	notes := e.Pool().Notes()
	notes.Releasing = append(notes.Releasing,
		ReleasingNote{Voice: 0, Freq: 100, ReleaseAt: 50, LastEnv: 1},
		ReleasingNote{Voice: 1, Freq: 200, ReleaseAt: 75, LastEnv: 1},
	)

	e.Transport().PlayHead = 8
	e.Tick()

	if got := notes.Releasing[0].ReleaseAt; got != 10 {
		t.Errorf("first ReleaseAt = %d, want 10", got)
	}
	if got := notes.Releasing[1].ReleaseAt; got != 35 {
		t.Errorf("second ReleaseAt = %d, want 35", got)
	}
	if notes.Releasing[0].ReleaseAt >= notes.Releasing[1].ReleaseAt {
		t.Error("wrap changed the order of releases")
	}
	tr := e.Transport()
	if tr.PlayHead != 1 || tr.Cursor != 0 || tr.Sample != 0 || tr.Loops != 1 {
		t.Errorf("transport after restart = %+v", *tr)
	}
}

func TestLoopRestartReleasesAndReplays(t *testing.T) {
	e, _ := newTestEngine(t, 4, 0)
	err := e.SetSequence([]Command{
		{Tick: 0, Kind: CmdNoteOn, Freq: 100, Vel: 127},
		{Tick: 1, Kind: CmdNoteOn, Freq: 200, Vel: 127},
		{Tick: 5, Kind: CmdNoteOn, Freq: 300, Vel: 127},
	})
	if err != nil {
		t.Fatal(err)
	}
	e.SetLoop(6, 6)
	e.SetLoopStart(2, 2)

	for i := 0; i < 7; i++ {
		e.Tick()
	}
	// tick 7: play-head was 6 -> restart at 2, ticks 0 and 1 replayed
	if got := triggeredFreqs(e); len(got) != 2 || got[0] != 100 || got[1] != 200 {
		t.Errorf("triggered after restart = %v, want [100 200]", got)
	}
	// 300 at tick 5 never sounded: play-head 6 restarts before dispatching
	if len(e.Pool().Notes().Releasing) != 2 {
		t.Errorf("releasing = %d, want 2 (everything sounding at the loop point)", len(e.Pool().Notes().Releasing))
	}
	tr := e.Transport()
	if tr.Cursor != 2 || tr.PlayHead != 3 || tr.Sample != 2 {
		t.Errorf("transport = %+v", *tr)
	}
}

func TestTickDispatchesStrictlyBeforePlayHead(t *testing.T) {
	e, _ := newTestEngine(t, 4, 0)
	if err := e.SetSequence([]Command{
		{Tick: 0, Kind: CmdNoteOn, Freq: 440, Vel: 127},
		{Tick: 2, Kind: CmdNoteOff, Freq: 440},
	}); err != nil {
		t.Fatal(err)
	}

	e.Tick() // play-head 0: nothing is strictly before 0
	if len(e.Pool().Notes().Triggered) != 0 {
		t.Fatal("tick 0 entry dispatched at play-head 0")
	}
	e.Tick() // play-head 1
	if !e.Pool().Notes().IsTriggered(440) {
		t.Fatal("note-on not dispatched at play-head 1")
	}
	e.Tick() // play-head 2
	if !e.Pool().Notes().IsTriggered(440) {
		t.Fatal("note-off dispatched too early")
	}
	e.Tick() // play-head 3
	if e.Pool().Notes().IsTriggered(440) {
		t.Fatal("note-off not dispatched")
	}
}

func TestSetSequence(t *testing.T) {
	e, _ := newTestEngine(t, 4, 0)
	e.NoteOn(440, 127)

	bad := []Command{
		{Tick: 4, Kind: CmdNoteOn, Freq: 440},
		{Tick: 2, Kind: CmdNoteOff, Freq: 440},
	}
	if err := e.SetSequence(bad); !errors.Is(err, ErrUnsortedSequence) {
		t.Fatalf("err = %v, want ErrUnsortedSequence", err)
	}
	if !e.Pool().Notes().IsTriggered(440) {
		t.Fatal("rejected sequence released notes")
	}

	if err := e.SetSequence([]Command{{Tick: 0, Kind: CmdNoteOn, Freq: 220}}); err != nil {
		t.Fatal(err)
	}
	if len(e.Pool().Notes().Triggered) != 0 {
		t.Error("SetSequence should release every sounding note")
	}

	if err := e.SetSequence([]Command{{Tick: 0, Kind: 9}}); err == nil {
		t.Error("unknown command kind accepted")
	}
}

func TestMonoGatesFixedFrequencies(t *testing.T) {
	e, _ := newTestEngine(t, 6, 0)
	e.SetParams(polyParams().With(ParamPoly, 0))

	e.NoteOn(880, 127)
	got := triggeredFreqs(e)
	if len(got) != 2 || got[0] != 110 || got[1] != 165 {
		t.Fatalf("triggered = %v, want [110 165]", got)
	}

	e.NoteOn(440, 127)
	got = triggeredFreqs(e)
	if len(got) != 2 || got[0] != 110 || got[1] != 165 {
		t.Fatalf("retrigger = %v, want [110 165]", got)
	}
	if len(e.Pool().Notes().Releasing) != 2 {
		t.Errorf("releasing = %d, want the 2 previous notes", len(e.Pool().Notes().Releasing))
	}

	e.NoteOff(12345)
	if len(e.Pool().Notes().Triggered) != 0 {
		t.Error("mono note-off should release everything")
	}
	checkInvariants(t, e)
}

func TestExternalGuards(t *testing.T) {
	e, _ := newTestEngine(t, 4, 0)

	e.ExternalNoteOn(440, 127)
	e.ExternalNoteOn(440.001, 127)
	if len(e.Pool().Notes().Triggered) != 1 {
		t.Fatal("duplicate external note-on triggered twice")
	}

	e.ExternalNoteOff(330)
	if len(e.Pool().Notes().Releasing) != 0 {
		t.Fatal("external note-off without a voice released something")
	}
	e.ExternalNoteOff(440)
	if len(e.Pool().Notes().Releasing) != 1 {
		t.Fatal("external note-off did not release")
	}

	e.SetParams(polyParams().With(ParamPoly, 0))
	e.ExternalNoteOn(220, 127)
	e.ExternalNoteOn(330, 127)
	if got := len(e.Pool().Notes().Triggered); got != 2 {
		t.Fatalf("mono triggered = %d, want 2 (second note-on dropped)", got)
	}
	e.ExternalNoteOff(999)
	if len(e.Pool().Notes().Triggered) != 0 {
		t.Error("mono external note-off ignores the frequency")
	}
}

func TestSilentWithoutParams(t *testing.T) {
	e, _ := newTestEngine(t, 4, 0)
	e.NoteOn(440, 127)
	e.SetParams(nil)

	if got := e.Signal(); got != (Frame{}) {
		t.Errorf("Signal = %v, want zero frame", got)
	}

	e.ReleaseAll()
	e.NoteOn(550, 127)
	e.ExternalNoteOn(660, 127)
	if len(e.Pool().Notes().Triggered) != 0 {
		t.Error("commands must be ignored without parameters")
	}
}

func TestSignalRecordsEnvelope(t *testing.T) {
	e, _ := newTestEngine(t, 4, 0.25)
	e.NoteOn(440, 127)
	e.NoteOn(550, 63.5)

	out := e.Signal()
	if out[0] != 1.5 || out[1] != 1.5 {
		t.Errorf("Signal = %v, want [1.5 1.5]", out)
	}
	for _, n := range e.Pool().Notes().Triggered {
		if n.LastEnv != 1 {
			t.Errorf("LastEnv = %v, want 1", n.LastEnv)
		}
	}

	e.NoteOff(440)
	e.Signal()
	if got := e.Pool().Notes().Releasing[0].LastEnv; got != 0.75 {
		t.Errorf("releasing LastEnv = %v, want 0.75", got)
	}
}

func TestControlQueueDrainsBeforeTick(t *testing.T) {
	e, _ := newTestEngine(t, 4, 1)

	if !e.PostNoteOn(440, 127) {
		t.Fatal("post failed")
	}
	if len(e.Pool().Notes().Triggered) != 0 {
		t.Fatal("posted event applied before Step")
	}
	e.Step()
	if !e.Pool().Notes().IsTriggered(440) {
		t.Fatal("posted note-on not applied by Step")
	}

	if err := e.PostSequence([]Command{{Tick: 3, Kind: CmdNoteOn}, {Tick: 1, Kind: CmdNoteOn}}); err == nil {
		t.Fatal("unsorted sequence accepted by PostSequence")
	}

	e.Post(Control{Kind: CtlStop})
	e.Step()
	if len(e.Pool().Notes().Triggered) != 0 {
		t.Error("stop did not release")
	}
}

func TestPostDropsWhenFull(t *testing.T) {
	e, err := NewEngine(Options{Voices: 2, QueueSize: 1, Patch: &sumPatch{}})
	if err != nil {
		t.Fatal(err)
	}
	e.PostNoteOn(440, 127)
	if e.PostNoteOn(550, 127) {
		t.Fatal("post into a full queue succeeded")
	}
	if e.Snapshot().Lost != 1 {
		t.Errorf("lost = %d, want 1", e.Snapshot().Lost)
	}
}

func TestSamplesPerTickDivider(t *testing.T) {
	e, err := NewEngine(Options{Voices: 2, SamplesPerTick: 4, Patch: &sumPatch{}})
	if err != nil {
		t.Fatal(err)
	}
	e.SetParams(polyParams())
	for i := 0; i < 8; i++ {
		e.Step()
	}
	if ph := e.Transport().PlayHead; ph != 2 {
		t.Errorf("play-head = %d after 8 samples, want 2", ph)
	}
	if s := e.Transport().Sample; s != 8 {
		t.Errorf("sample = %d, want 8", s)
	}
}

func TestProcessPublishesStatus(t *testing.T) {
	e, _ := newTestEngine(t, 3, 1)
	e.NoteOn(440, 127)

	buf := make([]float32, 8)
	e.Process(buf)

	select {
	case <-e.UpdateChan:
	default:
		t.Fatal("no update signalled")
	}
	s := e.Status()
	if s == nil || s.Sample != 4 {
		t.Fatalf("status = %+v", s)
	}
	if s.Voices[0].State != VoiceTriggered || s.Voices[0].Freq != 440 {
		t.Errorf("voice 0 = %+v", s.Voices[0])
	}
	if buf[0] != 1 || buf[1] != 1 {
		t.Errorf("first frame = %v %v", buf[0], buf[1])
	}
}

func TestRandomOpsKeepInvariants(t *testing.T) {
	e, _ := newTestEngine(t, 5, 0.1)
	e.SetParams(polyParams().With(ParamRelease, 2))
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 5000; i++ {
		f := float64(100 + rng.IntN(12)*10)
		switch rng.IntN(5) {
		case 0, 1:
			e.NoteOn(f, 100)
		case 2:
			e.NoteOff(f)
		case 3:
			e.ExternalNoteOn(f, 100)
		case 4:
			if rng.IntN(20) == 0 {
				e.ReleaseAll()
			}
		}
		e.Step()
		checkInvariants(t, e)
	}
}

func TestNewEngineRejectsNegativeVoices(t *testing.T) {
	if _, err := NewEngine(Options{Voices: -1}); !errors.Is(err, ErrNoVoices) {
		t.Errorf("err = %v, want ErrNoVoices", err)
	}
}

func TestExternalNoteOnDefaults(t *testing.T) {
	e, _ := newTestEngine(t, 4, 0)

	e.ExternalNoteOn(0, 0)
	notes := e.Pool().Notes()
	if len(notes.Triggered) != 1 {
		t.Fatalf("triggered = %d, want 1", len(notes.Triggered))
	}
	if n := notes.Triggered[0]; n.Freq != DefaultFreq || n.Vel != 1 {
		t.Errorf("note = %+v, want %v Hz at full velocity", n, DefaultFreq)
	}

	// the default frequency is guarded like any other
	e.PostNoteOn(-1, 64)
	e.Step()
	if len(notes.Triggered) != 1 {
		t.Errorf("repeated default note-on triggered again: %v", triggeredFreqs(e))
	}

	e.ExternalNoteOn(220, 0)
	if i := notes.findTriggered(220); i < 0 || notes.Triggered[i].Vel != 1 {
		t.Errorf("missing velocity not defaulted: %+v", notes.Triggered)
	}
}

func TestPostReportsFullQueue(t *testing.T) {
	e, err := NewEngine(Options{Voices: 2, QueueSize: 1, Patch: &sumPatch{}})
	if err != nil {
		t.Fatal(err)
	}
	seq := []Command{{Tick: 0, Kind: CmdNoteOn, Freq: 440, Vel: 127}}

	e.Post(Control{Kind: CtlStop})
	if err := e.PostSequence(seq); !errors.Is(err, ErrQueueFull) {
		t.Errorf("PostSequence err = %v, want ErrQueueFull", err)
	}
	if err := e.PostSong(Control{LoopTicks: 8, Sequence: seq}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("PostSong err = %v, want ErrQueueFull", err)
	}
	e.Step()

	if len(e.Transport().Sequence) != 0 || e.Transport().LoopTicks != 0 {
		t.Errorf("dropped events reached the engine: %+v", e.Transport())
	}
	if lost := e.Snapshot().Lost; lost != 2 {
		t.Errorf("lost = %d, want 2", lost)
	}

	if err := e.PostSequence(seq); err != nil {
		t.Fatalf("PostSequence on a drained queue: %v", err)
	}
}

func TestPostSongAppliesTogether(t *testing.T) {
	e, _ := newTestEngine(t, 4, 0)
	for range 10 {
		e.Step()
	}
	e.NoteOn(330, 127)

	err := e.PostSong(Control{
		LoopTicks:        4,
		LoopSamples:      4,
		LoopStartTicks:   1,
		LoopStartSamples: 1,
		Sequence:         []Command{{Tick: 1, Kind: CmdNoteOn, Freq: 440, Vel: 127}},
	})
	if err != nil {
		t.Fatal(err)
	}
	e.Step()

	tr := e.Transport()
	if tr.LoopTicks != 4 || tr.LoopStartTicks != 1 || len(tr.Sequence) != 1 {
		t.Fatalf("transport = %+v", tr)
	}
	if got := triggeredFreqs(e); len(got) != 0 {
		t.Errorf("old note still triggered after song swap: %v", got)
	}
	// rewound to the loop start, so the tick-1 entry fires on the next tick
	e.Step()
	if got := triggeredFreqs(e); len(got) != 1 || got[0] != 440 {
		t.Errorf("triggered = %v, want [440]", got)
	}
}

// swapEnv unloads the engine's parameters from inside a step
type swapEnv struct {
	fakeEnv
	onAttack func()
}

func (s *swapEnv) SetAttack(ms float64) {
	s.fakeEnv.SetAttack(ms)
	s.onAttack()
}

func TestParamsReadOncePerStep(t *testing.T) {
	var e *Engine
	e, err := NewEngine(Options{
		Voices:        2,
		NewOscillator: func(int) Oscillator { return fakeOsc{} },
		NewEnvelope: func(int) Envelope {
			return &swapEnv{onAttack: func() { e.SetParams(nil) }}
		},
		Patch: &sumPatch{},
	})
	if err != nil {
		t.Fatal(err)
	}
	e.SetParams(polyParams())
	e.PostNoteOn(440, 127)

	// the note is triggered with the old snapshot, which also mixes it
	if f := e.Step(); f[0] != 1 {
		t.Errorf("frame = %v, want the note mixed with the params it started with", f)
	}
	if f := e.Step(); f != (Frame{}) {
		t.Errorf("frame after unload = %v, want silence", f)
	}
}

func TestAudioPathDoesNotLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	if err := debug.EnableAt(path); err != nil {
		t.Fatal(err)
	}
	defer debug.Disable()

	e, _ := newTestEngine(t, 1, 0)
	e.PostNoteOn(440, 127)
	e.Step()
	e.PostNoteOff(440)
	e.PostNoteOn(550, 127) // steals the releasing voice
	e.PostNoteOn(660, 127) // dropped, pool full
	e.Step()
	if e.SetSequence([]Command{{Tick: 2, Kind: CmdNoteOn}, {Tick: 1, Kind: CmdNoteOn}}) == nil {
		t.Fatal("unsorted sequence accepted")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 1 {
		t.Fatalf("audio path wrote to the log:\n%s", data)
	}

	LogChanges(nil, e.Snapshot())
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"stole 1", "dropped 1"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log missing %q:\n%s", want, data)
		}
	}
}

func TestPostLoop(t *testing.T) {
	e, _ := newTestEngine(t, 2, 0)
	e.Post(Control{Kind: CtlLoop, LoopTicks: 16, LoopSamples: 16, LoopStartTicks: 2, LoopStartSamples: 2})
	e.Step()

	tr := e.Transport()
	if tr.LoopTicks != 16 || tr.LoopSamples != 16 || tr.LoopStartTicks != 2 || tr.LoopStartSamples != 2 {
		t.Errorf("transport = %+v", tr)
	}
}
