package launchkey

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// messageRecorder captures messages a Device would send to the output port.
type messageRecorder struct {
	mu   sync.Mutex
	msgs []midi.Message
}

func (r *messageRecorder) send(msg midi.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *messageRecorder) last(t *testing.T) midi.Message {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		t.Fatal("no message sent")
	}
	return r.msgs[len(r.msgs)-1]
}

func (r *messageRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func newTestDevice(rec *messageRecorder, opts ...Option) *Device {
	log := logrus.New()
	log.SetOutput(io.Discard)
	d := New(append([]Option{WithLogger(log)}, opts...)...)
	if rec != nil {
		d.send = rec.send
	}
	return d
}

func expectNoteOn(t *testing.T, msg midi.Message, wantKey, wantVelocity uint8) {
	t.Helper()
	var channel, key, velocity uint8
	if !msg.GetNoteOn(&channel, &key, &velocity) {
		t.Fatalf("sent %s, want note-on", msg)
	}
	if channel != 0 || key != wantKey || velocity != wantVelocity {
		t.Fatalf("sent note-on ch=%d key=%d vel=%d, want ch=0 key=%d vel=%d",
			channel, key, velocity, wantKey, wantVelocity)
	}
}

func TestSetLed(t *testing.T) {
	rec := &messageRecorder{}
	d := newTestDevice(rec)

	if err := d.SetLed(0, RowTop, 42); err != nil {
		t.Fatal(err)
	}
	expectNoteOn(t, rec.last(t), 96, 42)

	if err := d.SetLed(8, RowBottom, 7); err != nil {
		t.Fatal(err)
	}
	expectNoteOn(t, rec.last(t), 120, 7)

	if err := d.ClearLed(3, RowTop); err != nil {
		t.Fatal(err)
	}
	expectNoteOn(t, rec.last(t), 99, 0)
}

func TestSetLedValidation(t *testing.T) {
	rec := &messageRecorder{}
	d := newTestDevice(rec)

	if err := d.SetLed(9, RowTop, 1); err == nil {
		t.Fatal("column 9 accepted")
	}
	if err := d.SetLed(-1, RowTop, 1); err == nil {
		t.Fatal("column -1 accepted")
	}
	if err := d.SetLed(0, Row(5), 1); err == nil {
		t.Fatal("row 5 accepted")
	}
	if err := d.SetLed(0, RowTop, 200); err == nil {
		t.Fatal("color 200 accepted")
	}
	if n := rec.count(); n != 0 {
		t.Fatalf("%d messages sent for rejected inputs", n)
	}
}

func TestOpenWiresOutputBeforeInputs(t *testing.T) {
	rec := &messageRecorder{}
	d := newTestDevice(nil)
	d.openOutput = func(string) (drivers.Out, func(midi.Message) error, error) {
		return nil, rec.send, nil
	}
	d.openInput = func(name string, onMsg func(midi.Message, int32)) (func(), error) {
		// Hardware can deliver the instant a listener attaches; the
		// subscriber below must already be able to send.
		onMsg(midi.ControlChange(0, 21, 10), 0)
		return func() {}, nil
	}

	var ledErr error
	if _, err := d.Subscribe(ChannelPotentiometerChange, func(Event) {
		ledErr = d.SetLed(0, RowTop, 1)
	}); err != nil {
		t.Fatal(err)
	}

	if err := d.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if ledErr != nil {
		t.Fatalf("send from subscriber during open: %v", ledErr)
	}
	// Two listeners attach by default, each delivered one message.
	if n := rec.count(); n != 2 {
		t.Fatalf("%d messages sent, want 2", n)
	}
}

func TestOpenInputFailureClosesOutput(t *testing.T) {
	rec := &messageRecorder{}
	d := newTestDevice(nil)
	d.openOutput = func(string) (drivers.Out, func(midi.Message) error, error) {
		return nil, rec.send, nil
	}
	listenErr := errors.New("port busy")
	d.openInput = func(string, func(midi.Message, int32)) (func(), error) {
		return nil, listenErr
	}

	if err := d.Open(); !errors.Is(err, listenErr) {
		t.Fatalf("open: got %v, want %v", err, listenErr)
	}
	if err := d.SetLed(0, RowTop, 1); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("SetLed after failed open: got %v, want ErrNotOpen", err)
	}
}

func TestOutputBeforeOpen(t *testing.T) {
	d := newTestDevice(nil)
	if err := d.SetLed(0, RowTop, 1); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("SetLed: got %v, want ErrNotOpen", err)
	}
	if err := d.SetInControl(true); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("SetInControl: got %v, want ErrNotOpen", err)
	}
}

func TestSetInControl(t *testing.T) {
	rec := &messageRecorder{}
	d := newTestDevice(rec)

	if err := d.SetInControl(true); err != nil {
		t.Fatal(err)
	}
	expectNoteOn(t, rec.last(t), 0x0C, 0x7F)

	if err := d.SetInControl(false); err != nil {
		t.Fatal(err)
	}
	expectNoteOn(t, rec.last(t), 0x0C, 0x00)
}

func TestDispatchPublishesDecodedEvents(t *testing.T) {
	d := newTestDevice(&messageRecorder{})

	var pots []PotentiometerChangeEvent
	var echoes []MidiEvent
	if _, err := d.Subscribe(ChannelPotentiometerChange, func(ev Event) {
		pots = append(pots, ev.(PotentiometerChangeEvent))
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Subscribe(ChannelMidi, func(ev Event) {
		echoes = append(echoes, ev.(MidiEvent))
	}); err != nil {
		t.Fatal(err)
	}

	d.onControlMessage(midi.ControlChange(0, 21, 64), 0)

	if len(pots) != 1 || pots[0].Index != 0 || pots[0].Value != 64 {
		t.Fatalf("potentiometer events = %#v", pots)
	}
	if len(echoes) != 1 || echoes[0].Origin != OriginControl {
		t.Fatalf("midi echoes = %#v", echoes)
	}

	d.onKeyboardMessage(midi.NoteOn(0, 60, 100), 0)
	if len(echoes) != 2 || echoes[1].Origin != OriginKeyboard {
		t.Fatalf("midi echoes after keyboard message = %#v", echoes)
	}
}

func TestRunCloseLifecycle(t *testing.T) {
	d := newTestDevice(&messageRecorder{})

	closed := make(chan Event, 1)
	if _, err := d.Subscribe(ChannelClose, func(ev Event) { closed <- ev }); err != nil {
		t.Fatal(err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(context.Background()) }()

	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close event not published")
	}

	// Teardown clears the registry.
	if n := d.bus.subscriberCount(ChannelClose); n != 0 {
		t.Fatalf("subscribers after teardown = %d, want 0", n)
	}

	// Close is idempotent.
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestRunContextCancel(t *testing.T) {
	d := newTestDevice(&messageRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run: got %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunAlwaysInControl(t *testing.T) {
	rec := &messageRecorder{}
	d := newTestDevice(rec, WithAlwaysInControl(true))

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(context.Background()) }()

	// Wait for the claim's InControl(true) to go out.
	deadline := time.Now().Add(time.Second)
	for rec.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Run never asserted control mode")
		}
		time.Sleep(5 * time.Millisecond)
	}
	expectNoteOn(t, rec.last(t), 0x0C, 0x7F)

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}

	// The claim was released on the way out.
	expectNoteOn(t, rec.last(t), 0x0C, 0x00)
	claim, err := d.ClaimControl(true)
	if err != nil {
		t.Fatalf("claim after shutdown: %v", err)
	}
	claim.Release()
}

func TestRunWarnsOnFailedClaimRelease(t *testing.T) {
	log, hook := test.NewNullLogger()
	d := New(WithLogger(log), WithAlwaysInControl(true))

	// Asserting control works; relinquishing it fails, as it does when the
	// output port disappears first.
	sendErr := errors.New("transport down")
	d.send = func(msg midi.Message) error {
		var channel, key, velocity uint8
		if msg.GetNoteOn(&channel, &key, &velocity) && velocity == 0 {
			return sendErr
		}
		return nil
	}

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(context.Background()) }()

	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	if !warned {
		t.Fatal("failed claim release was not logged at warn level")
	}
}
