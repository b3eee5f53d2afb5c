package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go-synth/audio"
	"go-synth/debug"
	"go-synth/midi"
	"go-synth/song"
	"go-synth/synth"
	"go-synth/tui"
)

func runPlay(cmd *cobra.Command, args []string) error {
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
	if s != nil {
		// nothing pulls audio yet, so the song can go in directly
		if err := s.Apply(engine); err != nil {
			return fmt.Errorf("song %s: %w", s.Name, err)
		}
		debug.Log("main", "song %q: %d events, loop %d ticks", s.Name, len(s.Commands), s.LoopTicks)
	}

	player, err := audio.NewPlayer(cfg.Audio.SampleRate, bufferSize(cfg), engine)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer player.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var deviceMgr *midi.DeviceManager
	if filter, auto := cfg.KeyboardFilter(); auto && !noMIDI {
		deviceMgr = midi.NewDeviceManager(filter, engine)
		go deviceMgr.Run(ctx)
	}

	player.Start()

	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		m := tui.NewModel(engine, deviceMgr, loadTheme(cfg), s, cfg.UI.Octave)
		if s != nil {
			m.Reload = func() (*song.Song, error) { return loadSong(cfg, args) }
		}
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	}

	return playHeadless(ctx, cmd, engine, s)
}

// playHeadless prints a line per completed loop and returns when the song
// has looped playLoops times, a one-shot song has finished, or ctx ends
func playHeadless(ctx context.Context, cmd *cobra.Command, engine *synth.Engine, s *song.Song) error {
	out := cmd.OutOrStdout()
	if s != nil {
		fmt.Fprintf(out, "playing %s (ctrl-c to stop)\n", s.Name)
	} else {
		fmt.Fprintln(out, "listening for MIDI (ctrl-c to stop)")
	}

	var last *synth.Status
	lastLoops := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-engine.UpdateChan:
		}

		st := engine.Status()
		if st == nil {
			continue
		}
		synth.LogChanges(last, st)
		last = st
		if st.Loops != lastLoops {
			lastLoops = st.Loops
			fmt.Fprintf(out, "loop %d  dropped:%d stolen:%d lost:%d\n", st.Loops, st.Dropped, st.Stolen, st.Lost)
		}
		if finished(st, s, playLoops) {
			return nil
		}
	}
}

// finished reports whether headless playback is done
func finished(st *synth.Status, s *song.Song, loops int) bool {
	if s == nil || (loops <= 0 && s.LoopTicks > 0) {
		return false
	}
	if s.LoopTicks > 0 {
		return st.Loops >= loops
	}
	// one-shot: past the last event with every voice silent
	if st.SeqLen > 0 && st.PlayHead <= s.Commands[st.SeqLen-1].Tick {
		return false
	}
	for _, v := range st.Voices {
		if v.State != synth.VoiceFree {
			return false
		}
	}
	return true
}
