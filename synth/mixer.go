package synth

// Patch turns voices into sound. Prepare runs once per sample before any
// note, Note once per sounding voice, Finish once on the summed notes.
type Patch interface {
	Prepare(p *Params)
	Note(p *Params, v *Voice, env, freq, vel float64) float64
	Finish(p *Params, sum float64) Frame
}

// Signal mixes every triggered and releasing voice through the patch.
// With no parameters loaded it returns silence.
func (e *Engine) Signal() Frame {
	return e.signal(e.params.Load())
}

func (e *Engine) signal(p *Params) Frame {
	if p.Len() == 0 {
		return Frame{}
	}

	e.patch.Prepare(p)

	var sum float64
	notes := &e.pool.notes
	for i := range notes.Triggered {
		n := &notes.Triggered[i]
		v := &e.pool.voices[n.Voice]
		env := v.Env.Next(v.Trigger)
		n.LastEnv = env
		sum += e.patch.Note(p, v, env, n.Freq, n.Vel)
	}
	for i := range notes.Releasing {
		n := &notes.Releasing[i]
		v := &e.pool.voices[n.Voice]
		env := v.Env.Next(v.Trigger)
		n.LastEnv = env
		sum += e.patch.Note(p, v, env, n.Freq, n.Vel)
	}

	return e.patch.Finish(p, sum)
}

// OnSample advances the sample counter and reclaims finished voices
func (e *Engine) OnSample() {
	e.tr.Sample++
	e.removeReleased()
}

// removeReleased frees releasing notes that are past their scheduled end
// and whose envelope has actually gone quiet.
func (e *Engine) removeReleased() {
	rel := e.pool.notes.Releasing
	kept := rel[:0]
	for _, n := range rel {
		if e.tr.Sample >= n.ReleaseAt+1 && n.LastEnv < silence {
			continue
		}
		kept = append(kept, n)
	}
	clear(rel[len(kept):])
	e.pool.notes.Releasing = kept
}
