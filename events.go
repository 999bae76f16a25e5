package launchkey

import "gitlab.com/gomidi/midi/v2"

// Channel identifies one of the fixed event channels a Device publishes on.
type Channel string

const (
	ChannelConnect             Channel = "connect"
	ChannelClose               Channel = "close"
	ChannelModeSwitch          Channel = "mode_switch"
	ChannelScenePress          Channel = "scene_press"
	ChannelTrackPress          Channel = "track_press"
	ChannelKeyboardPress       Channel = "keyboard_press"
	ChannelPadPress            Channel = "pad_press"
	ChannelPotentiometerChange Channel = "potentiometer_change"
	ChannelMidi                Channel = "midi"
)

// channels is the closed set of channels a Bus accepts subscriptions for.
var channels = []Channel{
	ChannelConnect,
	ChannelClose,
	ChannelModeSwitch,
	ChannelScenePress,
	ChannelTrackPress,
	ChannelKeyboardPress,
	ChannelPadPress,
	ChannelPotentiometerChange,
	ChannelMidi,
}

func (c Channel) valid() bool {
	for _, known := range channels {
		if c == known {
			return true
		}
	}
	return false
}

// Origin identifies which of the two physical MIDI input streams a raw
// message arrived on.
type Origin int

const (
	OriginControl Origin = iota
	OriginKeyboard
)

// Mode is one of the two operating modes of the hardware's control surface.
type Mode int

const (
	ModeControl Mode = iota
	ModeKeyboard
)

func (m Mode) String() string {
	if m == ModeKeyboard {
		return "keyboard"
	}
	return "control"
}

// State reports whether a momentary control is pressed or released.
type State int

const (
	StateUp State = iota
	StateDown
)

func (s State) String() string {
	if s == StateDown {
		return "down"
	}
	return "up"
}

// Row selects the top or bottom pad row. Scene buttons use the same
// top/bottom addressing.
type Row int

const (
	RowTop Row = iota
	RowBottom
)

// Side selects the left or right track button.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Event is a semantic event decoded from the device. The concrete types
// below form the complete set; each knows the channel it is published on.
type Event interface {
	channel() Channel
}

// ConnectEvent is published once after the device's ports are open.
type ConnectEvent struct{}

// CloseEvent is published once during device teardown.
type CloseEvent struct{}

// ModeSwitchEvent reports the control surface switching between keyboard
// and control mode via the physical mode button.
type ModeSwitchEvent struct {
	Mode Mode
}

// ScenePressEvent reports one of the two scene buttons.
type ScenePressEvent struct {
	Row   Row
	State State
}

// TrackPressEvent reports one of the two track navigation buttons.
type TrackPressEvent struct {
	Side  Side
	State State
}

// KeyboardPressEvent reports a key on the piano keyboard.
type KeyboardPressEvent struct {
	Note     uint8
	Velocity uint8
	State    State
}

// PadPressEvent reports one of the velocity-sensitive pads. X runs 0-8:
// columns 0-7 are the main pads, column 8 is the round button at the end
// of each row.
type PadPressEvent struct {
	X        int
	Row      Row
	Velocity uint8
	State    State
}

// PotentiometerChangeEvent reports one of the eight potentiometers.
// Index runs 0-7, Value 0-127.
type PotentiometerChangeEvent struct {
	Index int
	Value uint8
}

// MidiEvent echoes every raw message together with its origin port. One is
// published per wire message, before any higher-level event decoded from it.
type MidiEvent struct {
	Message midi.Message
	Origin  Origin
}

func (ConnectEvent) channel() Channel             { return ChannelConnect }
func (CloseEvent) channel() Channel               { return ChannelClose }
func (ModeSwitchEvent) channel() Channel          { return ChannelModeSwitch }
func (ScenePressEvent) channel() Channel          { return ChannelScenePress }
func (TrackPressEvent) channel() Channel          { return ChannelTrackPress }
func (KeyboardPressEvent) channel() Channel       { return ChannelKeyboardPress }
func (PadPressEvent) channel() Channel            { return ChannelPadPress }
func (PotentiometerChangeEvent) channel() Channel { return ChannelPotentiometerChange }
func (MidiEvent) channel() Channel                { return ChannelMidi }
