package synth

import (
	"sync/atomic"

	"go-synth/dsp"
)

// Defaults used when Options fields are zero
const (
	DefaultVoices     = 12
	DefaultSampleRate = 44100
	DefaultQueueSize  = 256
)

// Frame is one stereo output sample
type Frame [2]float64

// Options configures an Engine. Zero fields take the defaults above.
type Options struct {
	Voices         int
	SampleRate     float64
	SamplesPerTick int // sequencer ticks are this many samples long
	QueueSize      int // capacity of the control queue

	NewOscillator func(i int) Oscillator
	NewEnvelope   func(i int) Envelope
	Patch         Patch // defaults to DefaultPatch
}

// Engine is the voice-management and sequencing core. All methods other than
// Post, PostSequence, SetParams and Status must run on the audio goroutine.
type Engine struct {
	sampleRate     float64
	samplesPerTick int
	tickPhase      int

	params atomic.Pointer[Params]
	pool   *Pool
	tr     Transport
	patch  Patch

	ctrl    chan Control
	status  atomic.Pointer[Status]
	dropped uint64        // note-ons lost to a full pool
	lost    atomic.Uint64 // control events lost to a full queue

	// UpdateChan is signalled (non-blocking) whenever a new Status is published
	UpdateChan chan struct{}
}

// NewEngine builds an engine with no parameters loaded. It stays silent until SetParams.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Voices == 0 {
		opts.Voices = DefaultVoices
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.SamplesPerTick <= 0 {
		opts.SamplesPerTick = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	sr := opts.SampleRate
	if opts.NewOscillator == nil {
		opts.NewOscillator = func(i int) Oscillator { return dsp.NewOsc(sr, uint64(i)+1) }
	}
	if opts.NewEnvelope == nil {
		opts.NewEnvelope = func(int) Envelope { return dsp.NewEnvelope(sr) }
	}

	pool, err := NewPool(opts.Voices, opts.NewOscillator, opts.NewEnvelope)
	if err != nil {
		return nil, err
	}
	if opts.Patch == nil {
		opts.Patch = NewDefaultPatch(sr, opts.Voices)
	}

	e := &Engine{
		sampleRate:     sr,
		samplesPerTick: opts.SamplesPerTick,
		pool:           pool,
		patch:          opts.Patch,
		ctrl:           make(chan Control, opts.QueueSize),
		UpdateChan:     make(chan struct{}, 1),
	}
	return e, nil
}

// SetParams swaps in a new parameter snapshot. nil unloads the parameters.
// Safe from any goroutine.
func (e *Engine) SetParams(p *Params) {
	e.params.Store(p)
}

// Params returns the current snapshot, or nil
func (e *Engine) Params() *Params {
	return e.params.Load()
}

// SampleRate returns the configured sample rate
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// SamplesPerTick returns the tick divider
func (e *Engine) SamplesPerTick() int {
	return e.samplesPerTick
}

// Pool exposes the voice pool
func (e *Engine) Pool() *Pool {
	return e.pool
}

// Transport exposes the sequencer state
func (e *Engine) Transport() *Transport {
	return &e.tr
}

// Step runs one sample: drain queued control events, advance the sequencer
// on tick boundaries, mix, then do the post-sample bookkeeping. The parameter
// snapshot is loaded once, so a SetParams swap takes effect on the next Step.
func (e *Engine) Step() Frame {
	p := e.params.Load()
	e.drain(p)
	if e.tickPhase == 0 {
		e.tick(p)
	}
	e.tickPhase++
	if e.tickPhase >= e.samplesPerTick {
		e.tickPhase = 0
	}
	out := e.signal(p)
	e.OnSample()
	return out
}

// Process fills buf with interleaved stereo float32 frames and publishes a Status
func (e *Engine) Process(buf []float32) {
	for i := 0; i+1 < len(buf); i += 2 {
		f := e.Step()
		buf[i] = float32(f[0])
		buf[i+1] = float32(f[1])
	}
	e.publish()
}
