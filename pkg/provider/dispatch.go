package provider

import (
	"sync"

	"github.com/modoterra/livefeed/pkg/core"
)

// notification carries the listener generation and the highest listener id
// at the time it was posted.
type notification struct {
	signal  core.Signal
	payload any
	gen     uint64
	lastID  uint64
}

// dispatcher delivers notifications in post order on a single goroutine that
// exists only while the queue is non-empty.
type dispatcher struct {
	mu      sync.Mutex
	pending []notification
	running bool
	idle    *sync.Cond
	deliver func(notification)
}

func newDispatcher(deliver func(notification)) *dispatcher {
	d := &dispatcher{deliver: deliver}
	d.idle = sync.NewCond(&d.mu)
	return d
}

func (d *dispatcher) post(n notification) {
	d.mu.Lock()
	d.pending = append(d.pending, n)
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	go d.drain()
}

func (d *dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.pending) == 0 {
			d.running = false
			d.idle.Broadcast()
			d.mu.Unlock()
			return
		}
		n := d.pending[0]
		d.pending[0] = notification{}
		d.pending = d.pending[1:]
		d.mu.Unlock()

		d.deliver(n)
	}
}

// discard drops every notification not yet handed to deliver.
func (d *dispatcher) discard() {
	d.mu.Lock()
	clear(d.pending)
	d.pending = d.pending[:0]
	d.mu.Unlock()
}

// wait blocks until every queued notification has been delivered.
func (d *dispatcher) wait() {
	d.mu.Lock()
	for d.running {
		d.idle.Wait()
	}
	d.mu.Unlock()
}

// Flush blocks until every notification queued so far has been delivered.
// It must not be called from a listener.
func (b *Base) Flush() {
	b.queue.wait()
}
