package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"go-synth/midi"
	"go-synth/song"
)

func runPorts(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// CoreMIDI can hang
	ch := make(chan []string, 1)
	go func() { ch <- midi.Ports() }()

	select {
	case ports := <-ch:
		if len(ports) == 0 {
			fmt.Fprintln(out, "no MIDI inputs found")
		}
		for i, name := range ports {
			fmt.Fprintf(out, "  %d: %s\n", i, name)
		}
		return nil
	case <-time.After(3 * time.Second):
		return fmt.Errorf("timed out listing MIDI ports")
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := song.Load(args[0], song.LuaOptions{
		SampleRate:     float64(cfg.Audio.SampleRate),
		SamplesPerTick: cfg.Audio.SamplesPerTick,
	})
	if err != nil {
		return err
	}
	if err := s.Save(args[1]); err != nil {
		return fmt.Errorf("save %s: %w", args[1], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events to %s\n", len(s.Commands), args[1])
	return nil
}
