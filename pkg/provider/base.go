// Package provider implements the provider half of the live data contract.
//
// Base implements core.Provider and is meant to be embedded. Pull-style
// providers listen to core.SignalWantsData from their TurnON override and
// answer with SetData/SetError; push-style providers start their own producer
// in TurnON and call SetData as values arrive.
//
//	type Hello struct{ *provider.Base }
//
//	func (h *Hello) TurnON() error {
//		if h.IsTurnedON() {
//			return nil
//		}
//		h.Listen(core.SignalWantsData, func(any) { h.SetData("Hello world!") })
//		return h.Base.TurnON()
//	}
package provider

import (
	"sync"

	"github.com/modoterra/livefeed/pkg/core"
)

type listener struct {
	id uint64
	fn core.Listener
}

// Base holds the status flag, the listener registry and the notification
// dispatcher shared by all providers. The zero value is not usable; use NewBase.
type Base struct {
	mu        sync.RWMutex
	status    core.Status
	bound     bool
	data      any
	nextID    uint64
	gen       uint64
	listeners map[core.Signal][]listener

	queue *dispatcher
}

// NewBase returns a provider in the OFF state.
func NewBase() *Base {
	b := &Base{
		status:    core.StatusOFF,
		listeners: make(map[core.Signal][]listener),
	}
	b.queue = newDispatcher(b.deliver)
	return b
}

// TurnON sets the status to ON.
func (b *Base) TurnON() error {
	b.mu.Lock()
	b.status = core.StatusON
	b.mu.Unlock()
	return nil
}

// TurnOFF sets the status to OFF.
func (b *Base) TurnOFF() error {
	b.mu.Lock()
	b.status = core.StatusOFF
	b.mu.Unlock()
	return nil
}

// IsTurnedON reports whether the provider is ON.
func (b *Base) IsTurnedON() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status == core.StatusON
}

// Status returns the current status.
func (b *Base) Status() core.Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Bind claims the provider. Only the first call succeeds.
func (b *Base) Bind() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bound {
		return core.ErrProviderInUse
	}
	b.bound = true
	return nil
}

// RequestData emits wantsData synchronously to the current wantsData
// listeners.
func (b *Base) RequestData(opts any) {
	for _, fn := range b.snapshot(core.SignalWantsData) {
		fn(opts)
	}
}

// SetData records v as the last known data and queues a data notification.
// Providers should not override it.
func (b *Base) SetData(v any) {
	b.mu.Lock()
	b.data = v
	b.mu.Unlock()
	b.notify(core.SignalData, v)
}

// SetError queues an error notification.
func (b *Base) SetError(err error) {
	b.notify(core.SignalError, err)
}

// Data returns the last value passed to SetData.
func (b *Base) Data() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}

// Listen attaches fn to sig. The returned function detaches it; calling it
// more than once is a no-op.
func (b *Base) Listen(sig core.Signal, fn core.Listener) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[sig] = append(b.listeners[sig], listener{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sig, id) })
	}
}

// RemoveAllListeners detaches every listener of every signal, including the
// provider's own wantsData listener. Notifications still queued are
// discarded.
func (b *Base) RemoveAllListeners() {
	b.mu.Lock()
	b.listeners = make(map[core.Signal][]listener)
	b.gen++
	b.mu.Unlock()
	b.queue.discard()
}

// ListenerCount returns the number of listeners attached to sig.
func (b *Base) ListenerCount(sig core.Signal) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[sig])
}

func (b *Base) remove(sig core.Signal, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.listeners[sig]
	for i, l := range ls {
		if l.id == id {
			b.listeners[sig] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// snapshot copies the listener functions so dispatch never observes a
// registry mutated by a listener.
func (b *Base) snapshot(sig core.Signal) []core.Listener {
	return b.snapshotUpTo(sig, ^uint64(0))
}

// snapshotUpTo is snapshot restricted to listeners with an id of at most maxID.
func (b *Base) snapshotUpTo(sig core.Signal, maxID uint64) []core.Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ls := b.listeners[sig]
	out := make([]core.Listener, 0, len(ls))
	for _, l := range ls {
		if l.id <= maxID {
			out = append(out, l.fn)
		}
	}
	return out
}

func (b *Base) notify(sig core.Signal, payload any) {
	b.mu.RLock()
	n := notification{signal: sig, payload: payload, gen: b.gen, lastID: b.nextID}
	empty := len(b.listeners[sig]) == 0
	b.mu.RUnlock()
	if empty {
		return
	}
	b.queue.post(n)
}

// deliver resolves listeners at delivery time: a listener detached after the
// notification was queued never sees it, and neither does one attached after
// it. Notifications from before RemoveAllListeners are dropped.
func (b *Base) deliver(n notification) {
	b.mu.RLock()
	stale := n.gen != b.gen
	b.mu.RUnlock()
	if stale {
		return
	}
	for _, fn := range b.snapshotUpTo(n.signal, n.lastID) {
		fn(n.payload)
	}
}
