package song

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-synth/synth"
)

// ErrUnknownCommand is returned for sequence entries whose cmd is not noteon/noteoff
var ErrUnknownCommand = errors.New("unknown command")

// Song is a sequence plus the loop it plays in
type Song struct {
	Name string

	LoopTicks        int64 // 0 = play once, no wraparound
	LoopSamples      int64 // 0 = LoopTicks * samples per tick
	LoopStartTicks   int64
	LoopStartSamples int64 // 0 = LoopStartTicks * samples per tick

	Commands []synth.Command
}

// songFile is the on-disk JSON layout
type songFile struct {
	Name             string      `json:"name,omitempty"`
	LoopTicks        int64       `json:"loopTicks,omitempty"`
	LoopSamples      int64       `json:"loopSamples,omitempty"`
	LoopStartTicks   int64       `json:"loopStartTicks,omitempty"`
	LoopStartSamples int64       `json:"loopStartSamples,omitempty"`
	Sequence         []entryFile `json:"sequence"`
}

type entryFile struct {
	Tick      int64    `json:"tick"`
	Cmd       string   `json:"cmd"`
	Frequency float64  `json:"frequency"`
	Velocity  *float64 `json:"velocity,omitempty"`
}

// Load reads a song from a .json file or runs a .lua song script
func Load(path string, opts LuaOptions) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read song: %w", err)
	}

	var s *Song
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		s, err = RunLua(string(data), filepath.Base(path), opts)
	default:
		s, err = ParseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// ParseJSON decodes a song file. Entries must already be in tick order.
func ParseJSON(data []byte) (*Song, error) {
	var f songFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	s := &Song{
		Name:             f.Name,
		LoopTicks:        f.LoopTicks,
		LoopSamples:      f.LoopSamples,
		LoopStartTicks:   f.LoopStartTicks,
		LoopStartSamples: f.LoopStartSamples,
		Commands:         make([]synth.Command, 0, len(f.Sequence)),
	}
	for i, e := range f.Sequence {
		kind, err := parseKind(e.Cmd)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		vel := synth.DefaultVelocity
		if e.Velocity != nil {
			vel = *e.Velocity
		}
		s.Commands = append(s.Commands, synth.Command{
			Tick: e.Tick,
			Kind: kind,
			Freq: e.Frequency,
			Vel:  vel,
		})
	}
	if err := synth.ValidateSequence(s.Commands); err != nil {
		return nil, err
	}
	return s, nil
}

func parseKind(cmd string) (synth.CommandKind, error) {
	switch cmd {
	case "noteon":
		return synth.CmdNoteOn, nil
	case "noteoff":
		return synth.CmdNoteOff, nil
	default:
		return 0, fmt.Errorf("%q: %w", cmd, ErrUnknownCommand)
	}
}

// Save writes the song as JSON
func (s *Song) Save(path string) error {
	f := songFile{
		Name:             s.Name,
		LoopTicks:        s.LoopTicks,
		LoopSamples:      s.LoopSamples,
		LoopStartTicks:   s.LoopStartTicks,
		LoopStartSamples: s.LoopStartSamples,
		Sequence:         make([]entryFile, 0, len(s.Commands)),
	}
	for _, c := range s.Commands {
		e := entryFile{Tick: c.Tick, Cmd: c.Kind.String(), Frequency: c.Freq}
		if c.Kind == synth.CmdNoteOn {
			vel := c.Vel
			e.Velocity = &vel
		}
		f.Sequence = append(f.Sequence, e)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve fills sample lengths left at zero from the tick lengths
func (s *Song) Resolve(samplesPerTick int) {
	spt := int64(max(samplesPerTick, 1))
	if s.LoopSamples == 0 {
		s.LoopSamples = s.LoopTicks * spt
	}
	if s.LoopStartSamples == 0 {
		s.LoopStartSamples = s.LoopStartTicks * spt
	}
}

// Duration returns the loop length in seconds, or the time of the last
// command when the song does not loop.
func (s *Song) Duration(sampleRate float64, samplesPerTick int) float64 {
	ticks := s.LoopTicks
	if ticks <= 0 && len(s.Commands) > 0 {
		ticks = s.Commands[len(s.Commands)-1].Tick + 1
	}
	return float64(ticks*int64(max(samplesPerTick, 1))) / sampleRate
}

// Post hands the song to a running engine through its control queue. Loop
// settings, sequence and rewind travel as one event, so a full queue
// (synth.ErrQueueFull) leaves the engine as it was.
func (s *Song) Post(e *synth.Engine) error {
	s.Resolve(e.SamplesPerTick())
	return e.PostSong(synth.Control{
		LoopTicks:        s.LoopTicks,
		LoopSamples:      s.LoopSamples,
		LoopStartTicks:   s.LoopStartTicks,
		LoopStartSamples: s.LoopStartSamples,
		Sequence:         s.Commands,
	})
}

// Apply installs the song directly. Only for engines not yet driven by audio.
func (s *Song) Apply(e *synth.Engine) error {
	s.Resolve(e.SamplesPerTick())
	e.SetLoop(s.LoopTicks, s.LoopSamples)
	e.SetLoopStart(s.LoopStartTicks, s.LoopStartSamples)
	if err := e.SetSequence(s.Commands); err != nil {
		return err
	}
	e.Rewind()
	return nil
}
