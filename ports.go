package launchkey

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// findInPort returns the first input port whose name contains name. System
// port names carry platform-specific prefixes and indices, so matching is
// by substring.
func findInPort(name string) (drivers.In, error) {
	for _, in := range midi.GetInPorts() {
		if strings.Contains(in.String(), name) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("launchkey: input port not found: %s", name)
}

// findOutPort returns the first output port whose name contains name.
func findOutPort(name string) (drivers.Out, error) {
	for _, out := range midi.GetOutPorts() {
		if strings.Contains(out.String(), name) {
			return out, nil
		}
	}
	return nil, fmt.Errorf("launchkey: output port not found: %s", name)
}

// openInputPort resolves an input port by name and starts listening on it.
func openInputPort(name string, onMsg func(midi.Message, int32)) (func(), error) {
	in, err := findInPort(name)
	if err != nil {
		return nil, err
	}
	return midi.ListenTo(in, onMsg)
}

// openOutputPort resolves an output port by name and returns it together
// with a send function bound to it.
func openOutputPort(name string) (drivers.Out, func(midi.Message) error, error) {
	out, err := findOutPort(name)
	if err != nil {
		return nil, nil, err
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, nil, fmt.Errorf("open output port: %w", err)
	}
	return out, send, nil
}

// InPorts returns the names of the available MIDI input ports.
func InPorts() []string {
	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// OutPorts returns the names of the available MIDI output ports.
func OutPorts() []string {
	outs := midi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names
}
