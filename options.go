package launchkey

import "github.com/sirupsen/logrus"

// Default port names as the hardware registers them with the system.
const (
	DefaultKeyboardPort = "Launchkey Mini 0"
	DefaultControlPort  = "MIDIIN2 (Launchkey Mini) 1"
	DefaultOutputPort   = "MIDIOUT2 (Launchkey Mini) 2"
)

type options struct {
	keyboard        bool
	controls        bool
	keyboardPort    string
	controlPort     string
	outputPort      string
	alwaysInControl bool
	logger          *logrus.Logger
}

func defaultOptions() options {
	return options{
		keyboard:     true,
		controls:     true,
		keyboardPort: DefaultKeyboardPort,
		controlPort:  DefaultControlPort,
		outputPort:   DefaultOutputPort,
		logger:       logrus.StandardLogger(),
	}
}

// Option configures a Device.
type Option func(*options)

// WithKeyboard enables or disables opening the keyboard input port.
func WithKeyboard(enabled bool) Option {
	return func(o *options) { o.keyboard = enabled }
}

// WithControls enables or disables opening the control-surface input port.
func WithControls(enabled bool) Option {
	return func(o *options) { o.controls = enabled }
}

// WithPorts overrides the port names used to locate the device. Empty
// strings keep the corresponding default.
func WithPorts(keyboard, control, output string) Option {
	return func(o *options) {
		if keyboard != "" {
			o.keyboardPort = keyboard
		}
		if control != "" {
			o.controlPort = control
		}
		if output != "" {
			o.outputPort = output
		}
	}
}

// WithLogger sets the logger the device reports lifecycle events and
// asynchronous send failures through. A nil logger keeps the default.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAlwaysInControl makes Run hold a blocking control claim for its whole
// lifetime, keeping the surface in control mode until shutdown.
func WithAlwaysInControl(enabled bool) Option {
	return func(o *options) { o.alwaysInControl = enabled }
}
