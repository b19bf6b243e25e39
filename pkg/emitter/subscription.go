package emitter

import (
	"github.com/google/uuid"

	"github.com/modoterra/livefeed/pkg/core"
)

// Listener receives values broadcast on a channel. On the data channel the
// value is the accepted snapshot; on the error channel it is an error.
type Listener func(v any)

// Subscription identifies one registration of a listener. Subscribing the
// same function twice yields two subscriptions.
type Subscription struct {
	id      uuid.UUID
	channel core.Channel
	fn      Listener
	once    bool
}

func newSubscription(ch core.Channel, fn Listener) *Subscription {
	return &Subscription{id: uuid.New(), channel: ch, fn: fn}
}

// ID returns the subscription's unique id.
func (s *Subscription) ID() uuid.UUID { return s.id }

// Channel returns the channel the subscription listens on.
func (s *Subscription) Channel() core.Channel { return s.channel }

// Once reports whether the subscription removes itself after one value.
func (s *Subscription) Once() bool { return s.once }

func (s *Subscription) String() string {
	return string(s.channel) + ":" + s.id.String()
}
