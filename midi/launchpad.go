package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-synth/debug"
)

// Grid layout: rows are a fourth apart, columns a semitone, like a bass neck
const (
	launchpadRowInterval = 5
	launchpadBaseNote    = 36 // C2 on the bottom-left pad
)

var (
	padOff     = [3]uint8{0, 0, 0}
	padRoot    = [3]uint8{40, 60, 120}
	padPressed = [3]uint8{0, 255, 0}
)

// LaunchpadController plays notes from a Novation Launchpad X grid.
// The up/down arrows on the top row shift the grid by an octave.
type LaunchpadController struct {
	id       string
	outPort  drivers.Out
	inPort   drivers.In
	send     func(msg gomidi.Message) error
	stopFunc func()

	mu      sync.Mutex
	base    int
	pressed map[[2]int]uint8 // pad -> note it started

	noteChan chan NoteEvent
}

// NewLaunchpadController switches the device to programmer mode and paints the grid
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadController, error) {
	lp := &LaunchpadController{
		id:       id,
		inPort:   inPort,
		outPort:  outPort,
		base:     launchpadBaseNote,
		pressed:  make(map[[2]int]uint8),
		noteChan: make(chan NoteEvent, 64),
	}

	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		lp.send = send

		// Programmer mode: F0 00 20 29 02 0C 00 7F F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))
		// Brightness max: F0 00 20 29 02 0C 08 7F F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}))
		lp.paint()
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			var channel, note, velocity, cc, value uint8
			switch {
			case msg.GetNoteStart(&channel, &note, &velocity):
				if row, col := noteToRowCol(note); row >= 0 && row < 8 && col < 8 {
					lp.pad(row, col, velocity)
				}
			case msg.GetNoteEnd(&channel, &note):
				if row, col := noteToRowCol(note); row >= 0 && row < 8 && col < 8 {
					lp.pad(row, col, 0)
				}
			case msg.GetControlChange(&channel, &cc, &value) && value > 0:
				if row, col := ccToRowCol(cc); row >= 0 {
					lp.arrow(col)
				}
			}
		}, gomidi.HandleError(func(err error) {
			debug.Log("midi", "%s: listen error: %v", id, err)
		}))
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	return lp, nil
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadController) NoteEvents() <-chan NoteEvent {
	return lp.noteChan
}

// pad handles a grid press (velocity > 0) or release
func (lp *LaunchpadController) pad(row, col int, velocity uint8) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	key := [2]int{row, col}
	if velocity > 0 {
		note := padNote(lp.base, row, col)
		lp.pressed[key] = note
		lp.push(NoteEvent{Note: note, Velocity: velocity, On: true})
		lp.setLED(row, col, padPressed)
		return
	}

	// release the note the pad started, even if the grid moved since
	note, ok := lp.pressed[key]
	if !ok {
		return
	}
	delete(lp.pressed, key)
	lp.push(NoteEvent{Note: note})
	lp.setLED(row, col, lp.padColor(row, col))
}

// arrow handles the top row: col 0 is up, col 1 is down
func (lp *LaunchpadController) arrow(col int) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	switch col {
	case 0:
		if padNote(lp.base+12, 7, 7) <= 127 {
			lp.base += 12
		}
	case 1:
		if lp.base >= 12 {
			lp.base -= 12
		}
	default:
		return
	}
	debug.Log("midi", "%s: grid base note %d", lp.id, lp.base)
	lp.paintLocked()
}

func (lp *LaunchpadController) push(ev NoteEvent) {
	select {
	case lp.noteChan <- ev:
	default:
		debug.Log("midi", "%s: dropped note %d on=%v", lp.id, ev.Note, ev.On)
	}
}

func (lp *LaunchpadController) paint() {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.paintLocked()
}

func (lp *LaunchpadController) paintLocked() {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			c := lp.padColor(row, col)
			if _, ok := lp.pressed[[2]int{row, col}]; ok {
				c = padPressed
			}
			lp.setLED(row, col, c)
		}
	}
}

// padColor marks every C so the player can find their way around
func (lp *LaunchpadController) padColor(row, col int) [3]uint8 {
	if padNote(lp.base, row, col)%12 == 0 {
		return padRoot
	}
	return padOff
}

func (lp *LaunchpadController) setLED(row, col int, rgb [3]uint8) {
	if lp.send == nil {
		return
	}
	lp.send(gomidi.NoteOn(0, rowColToNote(row, col), mapRGBToLaunchpad(rgb)))
}

// mapRGBToLaunchpad finds the nearest Launchpad X palette color for an RGB value
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	// {velocity, R, G, B}
	palette := [][4]uint8{
		{0, 0, 0, 0},         // off
		{5, 255, 0, 0},       // red
		{9, 255, 100, 0},     // orange
		{13, 255, 200, 0},    // yellow
		{19, 0, 100, 0},      // dim green
		{21, 0, 255, 0},      // bright green
		{37, 0, 200, 200},    // cyan
		{43, 40, 60, 120},    // dim blue
		{45, 0, 100, 255},    // blue
		{49, 150, 0, 200},    // purple
		{119, 255, 255, 255}, // white
	}

	bestMatch := uint8(0)
	bestDist := 1 << 30
	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	for _, p := range palette {
		pr, pg, pb := int(p[1]), int(p[2]), int(p[3])
		dist := (r-pr)*(r-pr) + (g-pg)*(g-pg) + (b-pb)*(b-pb)
		if dist < bestDist {
			bestDist = dist
			bestMatch = p[0]
		}
	}
	return bestMatch
}

func (lp *LaunchpadController) Close() error {
	if lp.stopFunc != nil {
		lp.stopFunc()
	}
	if lp.send != nil {
		for row := 0; row < 8; row++ {
			for col := 0; col < 8; col++ {
				lp.setLED(row, col, padOff)
			}
		}
	}
	close(lp.noteChan)
	return nil
}

func padNote(base, row, col int) uint8 {
	return uint8(base + row*launchpadRowInterval + col)
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 = notes 19, 29, ... 89
// Top row:   CC 91-98

func rowColToNote(row, col int) uint8 {
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	if note >= 91 && note <= 98 {
		return 8, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return 8, int(cc - 91)
	}
	return -1, -1
}
