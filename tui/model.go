package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-synth/dsp"
	"go-synth/midi"
	"go-synth/song"
	"go-synth/synth"
	"go-synth/theme"
	"go-synth/widgets"
)

// tracker-style layout on the bottom letter row, one octave plus the next C
var pianoKeys = map[string]int{
	"z": 0, "s": 1, "x": 2, "d": 3, "c": 4, "v": 5, "g": 6,
	"b": 7, "h": 8, "n": 9, "j": 10, "m": 11, ",": 12,
}

var keyHelp = []widgets.KeySection{
	{Title: "Play", Keys: []widgets.KeyBinding{
		{Key: "z s x ... ,", Desc: "toggle note"},
		{Key: "- / =", Desc: "octave down / up"},
		{Key: "p", Desc: "poly / mono"},
	}},
	{Title: "Transport", Keys: []widgets.KeyBinding{
		{Key: "space", Desc: "stop all notes"},
		{Key: "r", Desc: "rewind song"},
		{Key: "l", Desc: "reload song from disk"},
		{Key: "q", Desc: "quit"},
	}},
}

type Model struct {
	Engine    *synth.Engine
	DeviceMgr *midi.DeviceManager // may be nil
	Theme     *theme.Theme
	Song      *song.Song // may be nil

	// Reload reads the song from disk again; nil disables the key
	Reload func() (*song.Song, error)

	last     *synth.Status // previous snapshot, for LogChanges
	octave   int
	held     map[string]float64 // piano key -> frequency it started
	devices  []string
	help     bool
	message  string
	quitting bool
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

func NewModel(engine *synth.Engine, deviceMgr *midi.DeviceManager, th *theme.Theme, s *song.Song, octave int) Model {
	return Model{
		Engine:    engine,
		DeviceMgr: deviceMgr,
		Theme:     th,
		Song:      s,
		octave:    octave,
		held:      make(map[string]float64),
	}
}

func ListenForUpdates(engine *synth.Engine) tea.Cmd {
	return func() tea.Msg {
		<-engine.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Engine),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			m.Engine.Post(synth.Control{Kind: synth.CtlStop})
			return m, tea.Quit

		case " ", "space":
			m.Engine.Post(synth.Control{Kind: synth.CtlStop})
			clear(m.held)

		case "r":
			m.Engine.Post(synth.Control{Kind: synth.CtlRewind})

		case "l":
			m = m.reload()

		case "p":
			if p := m.Engine.Params(); p.Len() > 0 {
				m.Engine.SetParams(p.With(synth.ParamPoly, 1-p.Get(synth.ParamPoly)))
			}

		case "-":
			m.octave = max(m.octave-1, 0)

		case "=", "+":
			m.octave = min(m.octave+1, 8)

		case "?":
			m.help = !m.help

		default:
			if semi, ok := pianoKeys[key]; ok {
				m.toggle(key, semi)
			}
		}

	case UpdateMsg:
		st := m.Engine.Status()
		synth.LogChanges(m.last, st)
		m.last = st
		return m, ListenForUpdates(m.Engine)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			if !slices.Contains(m.devices, event.ID) {
				m.devices = append(m.devices, event.ID)
			}
		case midi.DeviceDisconnected:
			m.devices = slices.DeleteFunc(m.devices, func(id string) bool { return id == event.ID })
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

// reload swaps in a fresh copy of the song without stopping audio
func (m Model) reload() Model {
	if m.Reload == nil {
		return m
	}
	s, err := m.Reload()
	if err == nil {
		err = s.Post(m.Engine)
	}
	if err != nil {
		m.message = err.Error()
		return m
	}
	clear(m.held)
	m.Song = s
	m.message = fmt.Sprintf("reloaded %s: %d events", s.Name, len(s.Commands))
	return m
}

// toggle starts or stops the note under a piano key. Terminals report no
// key-up, so a second press releases.
func (m Model) toggle(key string, semi int) {
	if freq, ok := m.held[key]; ok {
		delete(m.held, key)
		m.Engine.PostNoteOff(freq)
		return
	}
	freq := dsp.MidiToFreq(float64(12*(m.octave+1) + semi))
	m.held[key] = freq
	m.Engine.PostNoteOn(freq, synth.DefaultVelocity)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	st := m.Engine.Status()
	if st == nil {
		return headerStyle.Render("go-synth") + "\n\n" + dimStyle.Render("waiting for audio...") + "\n"
	}

	mode := "MONO"
	if st.Poly {
		mode = "POLY"
	}
	if !st.Loaded {
		mode = "----"
	}
	title := "go-synth"
	if m.Song != nil && m.Song.Name != "" {
		title += "  " + m.Song.Name
	}
	header := headerStyle.Render(fmt.Sprintf("%s  %s  oct:%d  tick:%d  loop:%d  %.1fs",
		title, mode, m.octave, st.PlayHead, st.Loops, float64(st.Sample)/m.Engine.SampleRate()))

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")

	b.WriteString(m.voiceRow(st))
	b.WriteString("\n")
	b.WriteString(m.levelRow(st))
	b.WriteString("\n\n")

	if st.LoopTicks > 0 {
		sym := m.Theme.Symbols
		tl := widgets.Timeline(st.PlayHead, st.LoopStartTicks, st.LoopTicks, 48,
			sym.LoopTrack, sym.LoopStart, sym.Playhead)
		b.WriteString(lipgloss.NewStyle().Foreground(m.Theme.FG()).Render(tl))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("seq:%d events", st.SeqLen)))
	b.WriteString("\n")

	stats := fmt.Sprintf("dropped:%d  stolen:%d  lost:%d", st.Dropped, st.Stolen, st.Lost)
	if st.Dropped > 0 || st.Lost > 0 {
		b.WriteString(warnStyle.Render(stats))
	} else {
		b.WriteString(dimStyle.Render(stats))
	}
	b.WriteString("\n")

	if len(m.devices) > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(m.Theme.Active()).Render("midi: " + strings.Join(m.devices, ", ")))
		b.WriteString("\n")
	}

	if m.message != "" {
		b.WriteString(warnStyle.Render(m.message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.help {
		b.WriteString(dimStyle.Render(widgets.RenderKeyHelp(keyHelp)))
	} else {
		b.WriteString(dimStyle.Render("z..,:notes  -/=:octave  p:poly  space:stop  r:rewind  l:reload  ?:help  q:quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) voiceRow(st *synth.Status) string {
	sym := m.Theme.Symbols
	cells := make([]widgets.VoiceCell, len(st.Voices))
	for i, v := range st.Voices {
		switch v.State {
		case synth.VoiceTriggered:
			cells[i] = widgets.VoiceCell{Symbol: sym.VoiceTriggered, Color: m.Theme.Level(v.Env)}
		case synth.VoiceReleasing:
			cells[i] = widgets.VoiceCell{Symbol: sym.VoiceReleasing, Color: m.Theme.Level(v.Env)}
		default:
			cells[i] = widgets.VoiceCell{Symbol: sym.VoiceFree, Color: m.Theme.Muted()}
		}
	}
	return widgets.RenderVoiceRow(cells)
}

// levelRow shows the loudest envelope among active voices
func (m Model) levelRow(st *synth.Status) string {
	var level float64
	for _, v := range st.Voices {
		if v.State != synth.VoiceFree {
			level = max(level, v.Env)
		}
	}
	sym := m.Theme.Symbols
	return widgets.RenderMeter(m.Theme.Level(level), level, 2*len(st.Voices)-1, sym.MeterFull, sym.MeterEmpty)
}
