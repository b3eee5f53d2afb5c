package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go-synth/config"
	"go-synth/debug"
	"go-synth/song"
	"go-synth/synth"
	"go-synth/theme"
)

var version = "0.1.0"

var (
	debugLog       bool
	patchPath      string
	voices         int
	sampleRate     int
	samplesPerTick int
	playLoops      int
	renderLoops    int
	noMIDI         bool
	tailSeconds    float64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "go-synth",
	Short: "Polyphonic software synth with a looping note sequencer",
	Long: `go-synth plays a polyphonic subtractive synth from a MIDI keyboard,
the computer keyboard or a looping song (JSON or Lua).

Settings live in ~/.config/go-synth/config.json; flags override them.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugLog {
			return debug.Enable()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		debug.Disable()
	},
}

var playCmd = &cobra.Command{
	Use:   "play [song]",
	Short: "Play live, optionally over a looping song",
	Long: `Open the sound card and play. MIDI keyboards are connected as they
are plugged in. With a terminal attached a live view is shown; otherwise
the song plays until it has looped --loops times or ctrl-c.

Examples:
  go-synth play
  go-synth play songs/arp.lua
  go-synth play songs/bass.json --voices 6 --loops 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

var renderCmd = &cobra.Command{
	Use:   "render song",
	Short: "Run a song offline and print levels per loop",
	Long: `Run the engine as fast as possible without a sound card and report
peak and RMS levels, voice steals and dropped notes for every loop.

Example:
  go-synth render songs/arp.lua --loops 3`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var exportCmd = &cobra.Command{
	Use:   "export script.lua out.json",
	Short: "Run a Lua song script and save the result as JSON",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI input ports",
	RunE:  runPorts,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(portsCmd)

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&debugLog, "debug", false, "Write a debug log to ~/.config/go-synth/debug.log")
	pf.StringVarP(&patchPath, "patch", "p", "", "Patch file (JSON params, default: built-in)")
	pf.IntVar(&voices, "voices", 0, "Number of voices (default from config)")
	pf.IntVarP(&sampleRate, "rate", "r", 0, "Sample rate in Hz (default from config)")
	pf.IntVar(&samplesPerTick, "tick", 0, "Samples per sequencer tick (default from config)")

	playCmd.Flags().IntVarP(&playLoops, "loops", "l", 0, "Stop after this many loops when headless (0 = until ctrl-c)")
	playCmd.Flags().BoolVar(&noMIDI, "no-midi", false, "Do not connect MIDI keyboards")

	renderCmd.Flags().IntVarP(&renderLoops, "loops", "l", 1, "Loops to render")
	renderCmd.Flags().Float64Var(&tailSeconds, "tail", 1, "Seconds rendered past the last event of a song that does not loop")
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("patch") {
		cfg.Patch = patchPath
	}
	if flags.Changed("voices") {
		cfg.Audio.Voices = voices
	}
	if flags.Changed("rate") {
		cfg.Audio.SampleRate = sampleRate
	}
	if flags.Changed("tick") {
		cfg.Audio.SamplesPerTick = samplesPerTick
	}
	return cfg, nil
}

// newEngine builds an engine with the configured patch loaded
func newEngine(cfg *config.Config) (*synth.Engine, error) {
	engine, err := synth.NewEngine(synth.Options{
		Voices:         cfg.Audio.Voices,
		SampleRate:     float64(cfg.Audio.SampleRate),
		SamplesPerTick: cfg.Audio.SamplesPerTick,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	params := synth.DefaultParams()
	if cfg.Patch != "" {
		params, err = synth.LoadParams(cfg.Patch)
		if err != nil {
			return nil, fmt.Errorf("load patch: %w", err)
		}
	}
	engine.SetParams(params)
	debug.Log("main", "engine: %d voices @ %dHz, %d samples/tick, patch %q",
		cfg.Audio.Voices, cfg.Audio.SampleRate, cfg.Audio.SamplesPerTick, cfg.Patch)
	return engine, nil
}

// loadSong loads the song named on the command line, else the configured
// one. It returns nil when there is neither.
func loadSong(cfg *config.Config, args []string) (*song.Song, error) {
	path := cfg.Song
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, nil
	}
	return song.Load(path, song.LuaOptions{
		SampleRate:     float64(cfg.Audio.SampleRate),
		SamplesPerTick: cfg.Audio.SamplesPerTick,
	})
}

func loadTheme(cfg *config.Config) *theme.Theme {
	if cfg.UI.Palette == "" {
		return theme.New(nil)
	}
	palette, err := theme.LoadGPL(cfg.UI.Palette)
	if err != nil {
		debug.Log("main", "palette: %v, using default", err)
		return theme.New(nil)
	}
	return theme.New(palette)
}

func bufferSize(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Audio.BufferMs) * time.Millisecond
}
