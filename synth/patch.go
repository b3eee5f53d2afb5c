package synth

import "go-synth/dsp"

// DefaultPatch is a subtractive voice: per-note oscillator with envelope and
// LFO modulation, then delay, low-pass filter, reverb and pan on the mix.
type DefaultPatch struct {
	voices int

	lfo    *dsp.Osc
	delay  *dsp.DelayLine
	filter *dsp.LowPass
	reverb *dsp.Reverb

	lfoOut float64
}

// NewDefaultPatch builds the shared LFO and effect units
func NewDefaultPatch(sampleRate float64, voices int) *DefaultPatch {
	return &DefaultPatch{
		voices: voices,
		lfo:    dsp.NewOsc(sampleRate, 0x1f0),
		delay:  dsp.NewDelayLine(),
		filter: dsp.NewLowPass(sampleRate),
		reverb: dsp.NewReverb(sampleRate),
	}
}

func (d *DefaultPatch) Prepare(p *Params) {
	w := dsp.WaveformFromIndex(p.Get(ParamLfoOscFn))
	d.lfoOut = d.lfo.Next(w, p.Get(ParamLfoFrequency))
}

func (d *DefaultPatch) Note(p *Params, v *Voice, env, freq, vel float64) float64 {
	pitchMod := p.Get(ParamAdsrPitchMod)*env + d.lfoOut*p.Get(ParamLfoPitchMod)

	normalise := 4.0
	if p.Poly() {
		normalise = float64(d.voices)
	}
	lfoAmt := p.Get(ParamLfoAmpMod)
	ampOsc := (d.lfoOut + 1) / 2
	ampMod := ((1-lfoAmt)*env + lfoAmt*ampOsc*env) / normalise

	osc := v.Osc.Next(dsp.WaveformFromIndex(p.Get(ParamOscFn)), freq+pitchMod)
	return osc * ampMod * p.Get(ParamGain) * vel
}

func (d *DefaultPatch) Finish(p *Params, sum float64) Frame {
	delayMix := p.Get(ParamDelayMix)
	delayed := d.delay.Process(sum, int(p.Get(ParamDelay)), 0.5)
	out := delayed*delayMix*3.5 + sum*(1-delayMix)

	cutoff := p.Get(ParamCutoff) + (d.lfoOut+1)/2*p.Get(ParamLfoFilterMod)
	cutoff = min(max(cutoff, 40), 3000)
	out = d.filter.Process(out, cutoff, 0.5)

	if wet := p.Get(ParamReverbMix); wet > 0.01 {
		out = d.reverb.Process(out, p.Get(ParamRoomSize), 0.2)*wet*0.3 + out*(1-wet)
	}

	l, r := dsp.Pan(out, p.Get(ParamPan))
	return Frame{l, r}
}
