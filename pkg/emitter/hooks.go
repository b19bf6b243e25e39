package emitter

import "github.com/modoterra/livefeed/pkg/core"

// Hooks customizes an Emitter. Embed BaseHooks and override what you need.
type Hooks interface {
	// OnProviderData validates or transforms a provider value. A nil error
	// accepts the returned value; a non-nil error rejects it and is broadcast
	// on the error channel instead.
	OnProviderData(e *Emitter, v any) (any, error)
	// OnProviderError returns the error to broadcast, or nil to swallow it.
	OnProviderError(e *Emitter, err error) error
	OnNewListener(e *Emitter, ch core.Channel, sub *Subscription)
	OnRemoveListener(e *Emitter, ch core.Channel, sub *Subscription)
	// Interval runs on every tick, after the pull request.
	Interval(e *Emitter)
}

// BaseHooks passes data and errors through unchanged and does nothing else.
type BaseHooks struct{}

func (BaseHooks) OnProviderData(_ *Emitter, v any) (any, error)          { return v, nil }
func (BaseHooks) OnProviderError(_ *Emitter, err error) error            { return err }
func (BaseHooks) OnNewListener(*Emitter, core.Channel, *Subscription)    {}
func (BaseHooks) OnRemoveListener(*Emitter, core.Channel, *Subscription) {}
func (BaseHooks) Interval(*Emitter)                                      {}
