package song

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"go-synth/dsp"
	"go-synth/synth"
)

// ErrBadScript wraps any failure raised while running a song script
var ErrBadScript = errors.New("bad song script")

// LuaOptions are exposed to song scripts as globals
type LuaOptions struct {
	SampleRate     float64       // SAMPLE_RATE
	SamplesPerTick int           // SAMPLES_PER_TICK
	Timeout        time.Duration // 0 = 2s
}

// RunLua runs a song script and collects the events it emits.
//
// Scripts build the song with:
//
//	noteon(tick, freq [, vel])
//	noteoff(tick, freq)
//	note(tick, freq, length [, vel])   -- noteon at tick, noteoff at tick+length
//	loop(ticks [, startTick])
//	name(str)
//	mtof(midiNote)                      -- returns Hz
//
// Events may be emitted in any order; they are stable-sorted by tick.
func RunLua(src, chunkName string, opts LuaOptions) (*Song, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)

	if err := openLibs(L); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadScript, err)
	}

	s := &Song{}
	register(L, s)
	L.SetGlobal("SAMPLE_RATE", lua.LNumber(opts.SampleRate))
	L.SetGlobal("SAMPLES_PER_TICK", lua.LNumber(max(opts.SamplesPerTick, 1)))

	fn, err := L.Load(strings.NewReader(src), chunkName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadScript, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadScript, err)
	}

	slices.SortStableFunc(s.Commands, func(a, b synth.Command) int {
		return cmp.Compare(a.Tick, b.Tick)
	})
	return s, nil
}

// openLibs loads only the libraries a song needs. No io, os or debug.
func openLibs(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return err
		}
	}
	// base exposes these; songs have no business touching files
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return nil
}

func register(L *lua.LState, s *Song) {
	checkTick := func(L *lua.LState, n int) int64 {
		tick := L.CheckInt64(n)
		if tick < 0 {
			L.ArgError(n, "tick must be >= 0")
		}
		return tick
	}
	checkFreq := func(L *lua.LState, n int) float64 {
		f := float64(L.CheckNumber(n))
		if f <= 0 {
			L.ArgError(n, "frequency must be > 0")
		}
		return f
	}

	L.SetGlobal("noteon", L.NewFunction(func(L *lua.LState) int {
		s.Commands = append(s.Commands, synth.Command{
			Tick: checkTick(L, 1),
			Kind: synth.CmdNoteOn,
			Freq: checkFreq(L, 2),
			Vel:  float64(L.OptNumber(3, synth.DefaultVelocity)),
		})
		return 0
	}))

	L.SetGlobal("noteoff", L.NewFunction(func(L *lua.LState) int {
		s.Commands = append(s.Commands, synth.Command{
			Tick: checkTick(L, 1),
			Kind: synth.CmdNoteOff,
			Freq: checkFreq(L, 2),
		})
		return 0
	}))

	L.SetGlobal("note", L.NewFunction(func(L *lua.LState) int {
		tick := checkTick(L, 1)
		freq := checkFreq(L, 2)
		length := L.CheckInt64(3)
		if length <= 0 {
			L.ArgError(3, "length must be > 0")
		}
		vel := float64(L.OptNumber(4, synth.DefaultVelocity))
		s.Commands = append(s.Commands,
			synth.Command{Tick: tick, Kind: synth.CmdNoteOn, Freq: freq, Vel: vel},
			synth.Command{Tick: tick + length, Kind: synth.CmdNoteOff, Freq: freq},
		)
		return 0
	}))

	L.SetGlobal("loop", L.NewFunction(func(L *lua.LState) int {
		s.LoopTicks = L.CheckInt64(1)
		s.LoopStartTicks = L.OptInt64(2, 0)
		if s.LoopTicks < 0 || s.LoopStartTicks < 0 {
			L.RaiseError("loop ticks must be >= 0")
		}
		return 0
	}))

	L.SetGlobal("name", L.NewFunction(func(L *lua.LState) int {
		s.Name = L.CheckString(1)
		return 0
	}))

	L.SetGlobal("mtof", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(dsp.MidiToFreq(float64(L.CheckNumber(1)))))
		return 1
	}))
}
