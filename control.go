package launchkey

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// controlMonitor implements the scoped claim over the control surface's
// mode. At most one blocking claim is held process-wide; while it is held
// the monitor listens for hardware mode switches and forces the surface
// back into control mode.
type controlMonitor struct {
	mu  sync.Mutex
	bus *Bus
	set func(enabled bool) error
	log *logrus.Logger
}

// Claim is a held control-surface claim. The holder must call Release; the
// claim stays in force until then, overriding the physical mode button.
type Claim struct {
	mon      *controlMonitor
	listener Token
	blocking bool
	once     sync.Once
	err      error
}

// claim forces the surface into control mode. With block set it first
// acquires the process-wide mutual exclusion (waiting for any current
// holder) and attaches the mode-switch listener; without it the claim is a
// bare InControl toggle with no ownership.
//
// If sending the mode command fails, the lock and listener are released
// before the error is returned.
func (m *controlMonitor) claim(block bool) (*Claim, error) {
	c := &Claim{mon: m, blocking: block}

	if block {
		m.mu.Lock()
		tok, err := m.bus.Subscribe(ChannelModeSwitch, m.reassert)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		c.listener = tok
	}

	if err := m.set(true); err != nil {
		if block {
			m.bus.Unsubscribe(c.listener)
			m.mu.Unlock()
		}
		return nil, err
	}
	return c, nil
}

// reassert runs on the mode_switch channel while a blocking claim is held.
// The user can still press the physical mode button; the claim wins until
// released.
func (m *controlMonitor) reassert(ev Event) {
	ms, ok := ev.(ModeSwitchEvent)
	if !ok || ms.Mode != ModeKeyboard {
		return
	}
	if err := m.set(true); err != nil {
		m.log.WithError(err).Warn("launchkey: re-asserting control mode failed")
	}
}

// Release relinquishes the claim: the listener is detached, InControl is
// switched off and the mutual exclusion is released. The lock is released
// on every path, including a failed send. Calling Release again is a no-op
// returning the first result.
func (c *Claim) Release() error {
	c.once.Do(func() {
		if c.blocking {
			// Detach before relinquishing so this claim's listener cannot
			// re-assert control after the off command.
			c.mon.bus.Unsubscribe(c.listener)
			defer c.mon.mu.Unlock()
		}
		c.err = c.mon.set(false)
	})
	return c.err
}
