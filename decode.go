package launchkey

import "gitlab.com/gomidi/midi/v2"

// Note and controller numbers emitted by the hardware.
const (
	inControlNote  = 0x0C // note-on toggling InControl mode on the output port
	modeSwitchNote = 10

	padTopNoteLow     = 96
	padTopNoteHigh    = 104
	padBottomNoteLow  = 112
	padBottomNoteHigh = 120

	potControllerLow  = 21
	potControllerHigh = 28

	sceneTopController    = 104
	sceneBottomController = 105
	trackLeftController   = 106
	trackRightController  = 107

	// The round buttons at the end of each pad row report on the keyboard
	// port as controllers, not as pad notes.
	padOverflowTopController    = 108
	padOverflowBottomController = 109
)

// stateFromValue maps a momentary control's value to its press state:
// 0 means released, anything else pressed.
func stateFromValue(value uint8) State {
	if value > 0 {
		return StateDown
	}
	return StateUp
}

// Decode maps one raw MIDI message and its origin port to semantic events.
// Every message yields a MidiEvent echo first, followed by at most one
// higher-level event. Messages outside the known vocabulary yield only the
// echo; decoding never fails.
func Decode(msg midi.Message, origin Origin) []Event {
	events := []Event{MidiEvent{Message: msg, Origin: origin}}

	var sem Event
	if origin == OriginKeyboard {
		sem = decodeKeyboard(msg)
	} else {
		sem = decodeControl(msg)
	}
	if sem != nil {
		events = append(events, sem)
	}
	return events
}

func decodeKeyboard(msg midi.Message) Event {
	var channel, key, value uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &value):
		return KeyboardPressEvent{Note: key, Velocity: value, State: StateDown}

	case msg.GetNoteOff(&channel, &key, &value):
		return KeyboardPressEvent{Note: key, Velocity: value, State: StateUp}

	case msg.GetControlChange(&channel, &key, &value):
		switch key {
		case padOverflowTopController:
			return PadPressEvent{X: 8, Row: RowTop, Velocity: value, State: stateFromValue(value)}
		case padOverflowBottomController:
			return PadPressEvent{X: 8, Row: RowBottom, Velocity: value, State: stateFromValue(value)}
		default:
			// The hardware multiplexes the remaining control-surface
			// controllers onto the keyboard port.
			return decodeControl(msg)
		}
	}
	return nil
}

func decodeControl(msg midi.Message) Event {
	var channel, key, value uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &value):
		switch {
		case key >= padTopNoteLow && key <= padTopNoteHigh:
			return PadPressEvent{X: int(key - padTopNoteLow), Row: RowTop, Velocity: value, State: StateDown}
		case key >= padBottomNoteLow && key <= padBottomNoteHigh:
			return PadPressEvent{X: int(key - padBottomNoteLow), Row: RowBottom, Velocity: value, State: StateDown}
		case key == modeSwitchNote:
			// The mode button signals on note-on only; velocity 0 means the
			// surface dropped back into control mode.
			if value == 0 {
				return ModeSwitchEvent{Mode: ModeControl}
			}
			return ModeSwitchEvent{Mode: ModeKeyboard}
		}

	case msg.GetNoteOff(&channel, &key, &value):
		switch {
		case key >= padTopNoteLow && key <= padTopNoteHigh:
			return PadPressEvent{X: int(key - padTopNoteLow), Row: RowTop, Velocity: value, State: StateUp}
		case key >= padBottomNoteLow && key <= padBottomNoteHigh:
			return PadPressEvent{X: int(key - padBottomNoteLow), Row: RowBottom, Velocity: value, State: StateUp}
		}
		// Note-off on the mode-switch note is ignored; the firmware only
		// ever signals the button with note-on.

	case msg.GetControlChange(&channel, &key, &value):
		switch {
		case key >= potControllerLow && key <= potControllerHigh:
			return PotentiometerChangeEvent{Index: int(key - potControllerLow), Value: value}
		case key == trackRightController:
			return TrackPressEvent{Side: SideRight, State: stateFromValue(value)}
		case key == trackLeftController:
			return TrackPressEvent{Side: SideLeft, State: stateFromValue(value)}
		case key == sceneTopController:
			return ScenePressEvent{Row: RowTop, State: stateFromValue(value)}
		case key == sceneBottomController:
			return ScenePressEvent{Row: RowBottom, State: stateFromValue(value)}
		}
	}
	return nil
}
