package emitter

import (
	"github.com/google/uuid"

	"github.com/modoterra/livefeed/pkg/core"
)

// registry keeps subscriptions per channel in subscription order.
type registry struct {
	subs map[core.Channel][]*Subscription
	byID map[uuid.UUID]*Subscription
}

func newRegistry() *registry {
	return &registry{
		subs: make(map[core.Channel][]*Subscription),
		byID: make(map[uuid.UUID]*Subscription),
	}
}

func (r *registry) add(s *Subscription) {
	r.subs[s.channel] = append(r.subs[s.channel], s)
	r.byID[s.id] = s
}

func (r *registry) remove(s *Subscription) bool {
	if r.byID[s.id] != s {
		return false
	}
	delete(r.byID, s.id)
	list := r.subs[s.channel]
	for i, cur := range list {
		if cur == s {
			r.subs[s.channel] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry) has(s *Subscription) bool {
	return r.byID[s.id] == s
}

func (r *registry) count(ch core.Channel) int {
	return len(r.subs[ch])
}

func (r *registry) total() int {
	return len(r.byID)
}

func (r *registry) snapshot(ch core.Channel) []*Subscription {
	list := r.subs[ch]
	out := make([]*Subscription, len(list))
	copy(out, list)
	return out
}

// all returns every subscription, data channel first.
func (r *registry) all() []*Subscription {
	var out []*Subscription
	for _, ch := range core.Channels {
		out = append(out, r.subs[ch]...)
	}
	return out
}
