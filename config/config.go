package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// KeyboardConfig selects which MIDI inputs play the synth
type KeyboardConfig struct {
	PortName    string `json:"portName,omitempty"` // substring match, empty = every input
	AutoConnect bool   `json:"autoConnect"`
}

// AudioConfig sets up the engine and output device
type AudioConfig struct {
	SampleRate     int `json:"sampleRate,omitempty"`
	Voices         int `json:"voices,omitempty"`
	SamplesPerTick int `json:"samplesPerTick,omitempty"`
	BufferMs       int `json:"bufferMs,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Octave  int    `json:"octave,omitempty"`
	Palette string `json:"palette,omitempty"` // path to a .gpl file
}

// Config is the main configuration structure
type Config struct {
	Audio    AudioConfig    `json:"audio"`
	Keyboard KeyboardConfig `json:"keyboard"`
	Patch    string         `json:"patch,omitempty"` // params JSON, empty = built-in
	Song     string         `json:"song,omitempty"`  // played when no song is given
	UI       UIConfig       `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:     44100,
			Voices:         12,
			SamplesPerTick: 1,
			BufferMs:       20,
		},
		Keyboard: KeyboardConfig{
			AutoConnect: true,
		},
		UI: UIConfig{
			Octave: 4,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-synth"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
// Fields missing from the file keep their defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// normalize replaces zero and negative values with defaults
func (c *Config) normalize() {
	d := DefaultConfig()
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	if c.Audio.Voices <= 0 {
		c.Audio.Voices = d.Audio.Voices
	}
	if c.Audio.SamplesPerTick <= 0 {
		c.Audio.SamplesPerTick = d.Audio.SamplesPerTick
	}
	if c.Audio.BufferMs <= 0 {
		c.Audio.BufferMs = d.Audio.BufferMs
	}
	c.UI.Octave = min(max(c.UI.Octave, 0), 8)
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// KeyboardFilter returns the port filter for the MIDI device manager and
// whether keyboards should be connected at all
func (c *Config) KeyboardFilter() (string, bool) {
	return c.Keyboard.PortName, c.Keyboard.AutoConnect
}
