package synth

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
)

// Parameter names read by the engine and DefaultPatch
const (
	ParamPoly         = "poly"
	ParamAttack       = "attack"
	ParamDecay        = "decay"
	ParamSustain      = "sustain"
	ParamRelease      = "release"
	ParamFrequency    = "frequency"
	ParamFrequency2   = "frequency2"
	ParamGain         = "gain"
	ParamOscFn        = "oscFn"
	ParamLfoOscFn     = "lfoOscFn"
	ParamLfoFrequency = "lfoFrequency"
	ParamAdsrPitchMod = "adsrPitchMod"
	ParamLfoPitchMod  = "lfoPitchMod"
	ParamLfoAmpMod    = "lfoAmpMod"
	ParamLfoFilterMod = "lfoFilterMod"
	ParamCutoff       = "cutoff"
	ParamDelay        = "delay"
	ParamDelayMix     = "delayMix"
	ParamReverbMix    = "reverbMix"
	ParamRoomSize     = "roomSize"
	ParamPan          = "pan"
)

// Params is an immutable snapshot of patch parameter values.
// Replace the whole snapshot with Engine.SetParams to change a value.
type Params struct {
	vals map[string]float64
}

// NewParams copies vals into a new snapshot
func NewParams(vals map[string]float64) *Params {
	return &Params{vals: maps.Clone(vals)}
}

// DefaultParams returns a playable poly patch
func DefaultParams() *Params {
	return NewParams(map[string]float64{
		ParamPoly:         1,
		ParamAttack:       10,
		ParamDecay:        200,
		ParamSustain:      0.7,
		ParamRelease:      400,
		ParamFrequency:    220,
		ParamFrequency2:   330,
		ParamGain:         0.8,
		ParamOscFn:        2,
		ParamLfoOscFn:     0,
		ParamLfoFrequency: 4,
		ParamAdsrPitchMod: 0,
		ParamLfoPitchMod:  0,
		ParamLfoAmpMod:    0,
		ParamLfoFilterMod: 0,
		ParamCutoff:       2000,
		ParamDelay:        11025,
		ParamDelayMix:     0.1,
		ParamReverbMix:    0.2,
		ParamRoomSize:     0.6,
		ParamPan:          0.5,
	})
}

// LoadParams reads a JSON object of name/value pairs. Names missing from the
// file take their DefaultParams value.
func LoadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patch: %w", err)
	}

	var vals map[string]float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return nil, fmt.Errorf("parse patch %s: %w", path, err)
	}

	merged := maps.Clone(DefaultParams().vals)
	maps.Copy(merged, vals)
	return &Params{vals: merged}, nil
}

// Get returns the named value, or 0 if it is not set
func (p *Params) Get(name string) float64 {
	if p == nil {
		return 0
	}
	return p.vals[name]
}

// With returns a copy of p with one value replaced
func (p *Params) With(name string, v float64) *Params {
	vals := make(map[string]float64, p.Len()+1)
	if p != nil {
		maps.Copy(vals, p.vals)
	}
	vals[name] = v
	return &Params{vals: vals}
}

// Poly reports whether the patch is in polyphonic mode
func (p *Params) Poly() bool {
	return p.Get(ParamPoly) == 1
}

// Len returns the number of values set
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.vals)
}
