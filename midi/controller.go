package midi

import gomidi "gitlab.com/gomidi/midi/v2"

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

func (t ControllerType) String() string {
	switch t {
	case ControllerLaunchpad:
		return "launchpad"
	case ControllerKeyboard:
		return "keyboard"
	default:
		return "unknown"
	}
}

// Controller is a MIDI input that plays notes
type Controller interface {
	ID() string
	Type() ControllerType

	NoteEvents() <-chan NoteEvent

	Close() error
}

// parseNote turns a note message into a NoteEvent. Note-on with velocity 0
// is a note-off.
func parseNote(msg gomidi.Message) (NoteEvent, bool) {
	var channel, note, velocity uint8
	switch {
	case msg.GetNoteStart(&channel, &note, &velocity):
		return NoteEvent{Note: note, Velocity: velocity, Channel: channel, On: true}, true
	case msg.GetNoteEnd(&channel, &note):
		return NoteEvent{Note: note, Channel: channel}, true
	}
	return NoteEvent{}, false
}
