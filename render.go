package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-synth/audio"
	"go-synth/debug"
	"go-synth/song"
	"go-synth/synth"
)

// renderLimit caps offline rendering at ten minutes of audio
const renderLimit = 10 * 60

// loopLevels are the output statistics of one pass through the loop
type loopLevels struct {
	Loop    int
	Frames  int
	Peak    float64
	RMS     float64
	Stolen  uint64
	Dropped uint64

	sumSq float64
}

func (l *loopLevels) add(chunk []float32) {
	if len(chunk) == 0 {
		return
	}
	peak, rms := audio.Levels(chunk)
	l.Peak = max(l.Peak, peak)
	l.sumSq += rms * rms * float64(len(chunk))
	l.Frames += len(chunk) / audio.Channels
}

func (l *loopLevels) finish() {
	if l.Frames > 0 {
		l.RMS = math.Sqrt(l.sumSq / float64(l.Frames*audio.Channels))
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	s, err := loadSong(cfg, args)
	if err != nil {
		return err
	}
	if err := s.Apply(engine); err != nil {
		return fmt.Errorf("song %s: %w", s.Name, err)
	}

	levels := renderSong(engine, s, renderLoops, tailSeconds)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d events, %d voices @ %.0fHz\n\n", s.Name, len(s.Commands), engine.Pool().Size(), engine.SampleRate())
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "loop\tseconds\tpeak\trms\tstolen\tdropped")
	for _, l := range levels {
		fmt.Fprintf(w, "%d\t%.2f\t%.3f\t%.3f\t%d\t%d\n",
			l.Loop, float64(l.Frames)/engine.SampleRate(), l.Peak, l.RMS, l.Stolen, l.Dropped)
	}
	return w.Flush()
}

// renderSong steps the engine offline. A looping song renders loops passes;
// a one-shot song renders up to its last event plus tail seconds.
func renderSong(engine *synth.Engine, s *song.Song, loops int, tail float64) []loopLevels {
	sr := engine.SampleRate()
	maxFrames := int(renderLimit * sr)
	if s.LoopTicks <= 0 {
		maxFrames = min(maxFrames, int((s.Duration(sr, engine.SamplesPerTick())+tail)*sr))
	}
	loops = max(loops, 1)

	tr := engine.Transport()
	chunk := make([]float32, 0, 8192)
	cur := &loopLevels{}
	var levels []loopLevels
	var stolen, dropped uint64

	flush := func() {
		cur.add(chunk)
		chunk = chunk[:0]
	}
	closeLoop := func() {
		flush()
		st := engine.Snapshot()
		cur.Stolen, cur.Dropped = st.Stolen-stolen, st.Dropped-dropped
		stolen, dropped = st.Stolen, st.Dropped
		cur.finish()
		levels = append(levels, *cur)
	}

	for frame := 0; frame < maxFrames; frame++ {
		before := tr.Loops
		f := engine.Step()
		if tr.Loops != before {
			closeLoop()
			if tr.Loops >= loops {
				return levels
			}
			cur = &loopLevels{Loop: tr.Loops}
		}
		chunk = append(chunk, float32(f[0]), float32(f[1]))
		if len(chunk) == cap(chunk) {
			flush()
		}
	}
	debug.Log("render", "stopped after %d frames", maxFrames)
	closeLoop()
	return levels
}
