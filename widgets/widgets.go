package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPad renders a single colored cell
func RenderPad(color lipgloss.Color, symbol rune) string {
	return lipgloss.NewStyle().Foreground(color).Render(string(symbol))
}

// VoiceCell is one voice in a voice row
type VoiceCell struct {
	Symbol rune
	Color  lipgloss.Color
}

// RenderVoiceRow renders voices left to right with spacing
func RenderVoiceRow(cells []VoiceCell) string {
	var out strings.Builder
	for i, c := range cells {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(RenderPad(c.Color, c.Symbol))
	}
	return out.String()
}

// MeterBar draws level (0-1) as width cells of full/empty
func MeterBar(level float64, width int, full, empty rune) string {
	if width <= 0 {
		return ""
	}
	n := int(min(max(level, 0), 1)*float64(width) + 0.5)
	return strings.Repeat(string(full), n) + strings.Repeat(string(empty), width-n)
}

// RenderMeter renders a colored MeterBar
func RenderMeter(color lipgloss.Color, level float64, width int, full, empty rune) string {
	return lipgloss.NewStyle().Foreground(color).Render(MeterBar(level, width, full, empty))
}

// Timeline draws a loop of length ticks squeezed into width cells with the
// playhead at pos and an optional loop-start marker
func Timeline(pos, start, length int64, width int, track, startMark, head rune) string {
	if width <= 0 {
		return ""
	}
	cells := []rune(strings.Repeat(string(track), width))
	if length <= 0 {
		return string(cells)
	}
	cell := func(t int64) int {
		return int(min(max(t*int64(width)/length, 0), int64(width-1)))
	}
	if start > 0 {
		cells[cell(start)] = startMark
	}
	cells[cell(pos%length)] = head
	return string(cells)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
