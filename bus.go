package launchkey

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrInvalidChannel is returned when subscribing to a channel name
	// outside the fixed set.
	ErrInvalidChannel = errors.New("launchkey: invalid event channel")

	// ErrUnknownToken is returned when unsubscribing with a token that is
	// not (or no longer) registered.
	ErrUnknownToken = errors.New("launchkey: unknown subscription token")
)

// Handler receives every event published on the channel it is subscribed
// to. Handlers run synchronously on the goroutine delivering the raw
// message, so they must not block for long.
type Handler func(Event)

// Token identifies a single subscription for later removal.
type Token string

// Bus fans events out to the subscribers of a fixed set of named channels.
// It is safe for concurrent use; both input ports publish through the same
// bus from their own delivery goroutines.
type Bus struct {
	mu    sync.RWMutex
	subs  map[Channel]map[Token]Handler
	index map[Token]Channel
}

// NewBus creates a bus with all channels registered and no subscribers.
func NewBus() *Bus {
	return &Bus{
		subs:  make(map[Channel]map[Token]Handler, len(channels)),
		index: make(map[Token]Channel),
	}
}

// Subscribe registers fn on the named channel and returns a token for
// removal. It fails with ErrInvalidChannel for channels outside the fixed
// set.
func (b *Bus) Subscribe(ch Channel, fn Handler) (Token, error) {
	if !ch.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, string(ch))
	}

	tok := Token(string(ch) + "/" + uuid.NewString())

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[ch] == nil {
		b.subs[ch] = make(map[Token]Handler)
	}
	b.subs[ch][tok] = fn
	b.index[tok] = ch
	return tok, nil
}

// Unsubscribe removes the subscription identified by tok. It fails with
// ErrUnknownToken if the token is stale or foreign.
func (b *Bus) Unsubscribe(tok Token) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.index[tok]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownToken, string(tok))
	}
	delete(b.index, tok)
	delete(b.subs[ch], tok)
	return nil
}

// Publish delivers ev to every current subscriber of ch, in no particular
// order. Publishing on an unknown channel or a channel without subscribers
// is a no-op. Handlers are invoked outside the registry lock, so a handler
// may subscribe or unsubscribe during its own invocation; whether such a
// change affects the in-flight fan-out is unspecified.
func (b *Bus) Publish(ch Channel, ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[ch]))
	for _, fn := range b.subs[ch] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Clear drops every subscription. Used at device teardown.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[Channel]map[Token]Handler, len(channels))
	b.index = make(map[Token]Channel)
}

// subscriberCount reports the current number of subscribers on ch.
func (b *Bus) subscriberCount(ch Channel) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[ch])
}
