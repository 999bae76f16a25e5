// Package launchkey drives a Novation Launchkey Mini over its two MIDI
// input ports and one output port. Raw messages are decoded into semantic
// events (pad presses, potentiometer changes, mode switches, keyboard
// notes) and fanned out on named channels; client code subscribes to the
// channels it cares about and drives the pad LEDs and the InControl mode
// back to the device.
package launchkey

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrNotOpen is returned when output is sent before Open succeeded.
var ErrNotOpen = errors.New("launchkey: device not open")

// ledNotes maps pad row and column to the note addressing its LED.
var ledNotes = [2][9]uint8{
	{96, 97, 98, 99, 100, 101, 102, 103, 104},
	{112, 113, 114, 115, 116, 117, 118, 119, 120},
}

// Device is a connected Launchkey Mini. Create one with New, open it with
// Open and block on Run; subscriptions can be added before or after Open.
type Device struct {
	opts options
	log  *logrus.Logger

	bus     *Bus
	control *controlMonitor

	stopKeyboard func()
	stopControl  func()
	out          drivers.Out
	send         func(midi.Message) error

	openInput  func(name string, onMsg func(midi.Message, int32)) (func(), error)
	openOutput func(name string) (drivers.Out, func(midi.Message) error, error)

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New creates an unopened device.
func New(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		opts:       o,
		log:        o.logger,
		bus:        NewBus(),
		closed:     make(chan struct{}),
		openInput:  openInputPort,
		openOutput: openOutputPort,
	}
	d.control = &controlMonitor{bus: d.bus, set: d.SetInControl, log: d.log}
	return d
}

// Open resolves the device's ports, starts listening on the enabled inputs
// and publishes the connect event. Each input port delivers on its own
// goroutine; decoding and fan-out run synchronously on that goroutine.
// The output is wired before either listener starts, so a subscriber
// reacting to the very first message can already send to the device.
func (d *Device) Open() error {
	out, send, err := d.openOutput(d.opts.outputPort)
	if err != nil {
		return err
	}
	d.out = out
	d.send = send

	if d.opts.keyboard {
		stop, err := d.openInput(d.opts.keyboardPort, d.onKeyboardMessage)
		if err != nil {
			d.closeOutput()
			return fmt.Errorf("keyboard input: %w", err)
		}
		d.stopKeyboard = stop
	}

	if d.opts.controls {
		stop, err := d.openInput(d.opts.controlPort, d.onControlMessage)
		if err != nil {
			d.stopListeners()
			d.closeOutput()
			return fmt.Errorf("control input: %w", err)
		}
		d.stopControl = stop
	}

	d.log.WithField("output", d.opts.outputPort).Info("launchkey: device connected")
	d.bus.Publish(ChannelConnect, ConnectEvent{})
	return nil
}

// Run blocks until Close is called or ctx is cancelled, then publishes the
// close event and clears all subscriptions. With WithAlwaysInControl it
// holds a blocking control claim for the whole wait.
func (d *Device) Run(ctx context.Context) error {
	var claim *Claim
	if d.opts.alwaysInControl {
		c, err := d.ClaimControl(true)
		if err != nil {
			return err
		}
		claim = c
	}

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
		d.Close()
	case <-d.closed:
	}

	if claim != nil {
		// The output port may already be gone; the claim still has to be
		// released so later claimants do not starve.
		if rerr := claim.Release(); rerr != nil {
			d.log.WithError(rerr).Warn("launchkey: releasing control claim on shutdown")
		}
	}

	d.bus.Publish(ChannelClose, CloseEvent{})
	d.bus.Clear()
	return err
}

// Close stops the input listeners, closes the output port and signals Run
// to finish teardown. Close is idempotent.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.stopListeners()
		if d.out != nil {
			d.closeErr = d.out.Close()
		}
		close(d.closed)
	})
	return d.closeErr
}

func (d *Device) closeOutput() {
	if d.out != nil {
		d.out.Close()
	}
	d.out = nil
	d.send = nil
}

func (d *Device) stopListeners() {
	if d.stopKeyboard != nil {
		d.stopKeyboard()
		d.stopKeyboard = nil
	}
	if d.stopControl != nil {
		d.stopControl()
		d.stopControl = nil
	}
}

// Subscribe registers fn on the named channel. See Bus.Subscribe.
func (d *Device) Subscribe(ch Channel, fn Handler) (Token, error) {
	return d.bus.Subscribe(ch, fn)
}

// Unsubscribe removes a subscription by token. See Bus.Unsubscribe.
func (d *Device) Unsubscribe(tok Token) error {
	return d.bus.Unsubscribe(tok)
}

// ClaimControl forces the control surface into control mode. With block
// set the claim is exclusive process-wide: the call waits until any
// current holder releases, and a hardware mode switch back to keyboard
// mode is overridden for as long as the claim is held. The returned Claim
// must be released by the caller; a failed claim never leaves the
// exclusion held.
func (d *Device) ClaimControl(block bool) (*Claim, error) {
	return d.control.claim(block)
}

// SetInControl switches the control surface's InControl (extended) mode on
// or off directly, without any claim semantics.
func (d *Device) SetInControl(enabled bool) error {
	if d.send == nil {
		return ErrNotOpen
	}
	state := uint8(0x00)
	if enabled {
		state = 0x7F
	}
	if err := d.send(midi.NoteOn(0, inControlNote, state)); err != nil {
		return fmt.Errorf("set in-control state: %w", err)
	}
	return nil
}

// SetLed lights the pad at column x (0-8) in the given row with a palette
// color index (0-127). The LEDs only respond while the surface is in
// control mode.
func (d *Device) SetLed(x int, row Row, color uint8) error {
	if d.send == nil {
		return ErrNotOpen
	}
	if x < 0 || x >= len(ledNotes[0]) {
		return fmt.Errorf("launchkey: pad column %d out of range", x)
	}
	if row != RowTop && row != RowBottom {
		return fmt.Errorf("launchkey: invalid pad row %d", int(row))
	}
	if color > 0x7F {
		return fmt.Errorf("launchkey: color index %d out of range", color)
	}
	if err := d.send(midi.NoteOn(0, ledNotes[row][x], color)); err != nil {
		return fmt.Errorf("set led (%d,%d): %w", x, int(row), err)
	}
	return nil
}

// ClearLed turns the pad LED at column x in the given row off.
func (d *Device) ClearLed(x int, row Row) error {
	return d.SetLed(x, row, 0)
}

func (d *Device) onKeyboardMessage(msg midi.Message, _ int32) {
	d.dispatch(msg, OriginKeyboard)
}

func (d *Device) onControlMessage(msg midi.Message, _ int32) {
	d.dispatch(msg, OriginControl)
}

func (d *Device) dispatch(msg midi.Message, origin Origin) {
	for _, ev := range Decode(msg, origin) {
		d.bus.Publish(ev.channel(), ev)
	}
}
