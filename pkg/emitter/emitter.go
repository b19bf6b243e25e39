// Package emitter couples subscriber bookkeeping to provider activation.
//
// An Emitter turns its provider on when the first subscriber arrives on any
// channel and off when the last one leaves. While at least one data
// subscriber exists it runs a repeating tick that asks the provider for data.
// Values coming back from the provider pass through Hooks.OnProviderData
// before being cached and broadcast.
package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
)

// Emitter exposes a data and an error channel backed by one provider.
type Emitter struct {
	name           string
	delay          time.Duration
	runImmediately bool
	autoRequest    bool
	logger         *slog.Logger
	hooks          Hooks

	// transition serializes subscription changes so activation and
	// deactivation are atomic with respect to each other.
	transition sync.Mutex

	mu       sync.RWMutex
	provider core.Provider
	subs     *registry
	lastData any
	hasData  bool

	// Bridges compare their captured epoch against these on every
	// notification; a mismatch means the bridge belongs to an earlier
	// activation.
	dataEpoch  uint64
	errorEpoch uint64
	dataOff    func()
	errorOff   func()

	tickCtx    context.Context
	tickCancel context.CancelFunc
	tickMu     sync.Mutex
}

// New creates an Emitter with no provider.
func New(opts ...Option) *Emitter {
	e := &Emitter{
		name:        "emitter",
		delay:       DefaultDelay,
		autoRequest: true,
		logger:      slog.Default(),
		hooks:       BaseHooks{},
		subs:        newRegistry(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Name returns the label given with WithName.
func (e *Emitter) Name() string { return e.name }

// Delay returns the tick period.
func (e *Emitter) Delay() time.Duration { return e.delay }

// RegisterProvider attaches p. It can be called once per Emitter and each
// provider can back a single Emitter.
func (e *Emitter) RegisterProvider(p core.Provider) error {
	if p == nil {
		return core.ErrNilProvider
	}

	e.transition.Lock()
	defer e.transition.Unlock()

	e.mu.RLock()
	registered := e.provider != nil
	e.mu.RUnlock()
	if registered {
		return core.ErrAlreadyRegistered
	}
	if err := p.Bind(); err != nil {
		return err
	}

	e.mu.Lock()
	e.provider = p
	e.mu.Unlock()
	emitterProviderActive.WithLabelValues(e.name).Set(0)
	return nil
}

// IsProviderRegistered reports whether RegisterProvider succeeded.
func (e *Emitter) IsProviderRegistered() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.provider != nil
}

// Provider returns the registered provider, or nil.
func (e *Emitter) Provider() core.Provider {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.provider
}

// Subscribe registers fn on ch. The first subscriber on any channel turns the
// provider on; the first data subscriber starts the tick.
func (e *Emitter) Subscribe(ch core.Channel, fn Listener) (*Subscription, error) {
	if fn == nil {
		return nil, core.ErrNilListener
	}
	sub := newSubscription(ch, fn)
	if err := e.subscribe(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Once registers fn for a single value on ch. The subscription is removed
// before fn runs.
func (e *Emitter) Once(ch core.Channel, fn Listener) (*Subscription, error) {
	if fn == nil {
		return nil, core.ErrNilListener
	}
	sub := newSubscription(ch, nil)
	sub.once = true
	sub.fn = func(v any) {
		if e.Unsubscribe(sub) {
			fn(v)
		}
	}
	if err := e.subscribe(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (e *Emitter) subscribe(sub *Subscription) error {
	if !e.IsProviderRegistered() {
		return core.ErrNoProvider
	}
	if !sub.channel.Valid() {
		return fmt.Errorf("%w: %q", core.ErrUnsupportedChannel, sub.channel)
	}

	tickCtx, err := e.attach(sub)
	if err != nil {
		return err
	}
	if tickCtx != nil {
		e.tick(tickCtx)
	}
	e.hooks.OnNewListener(e, sub.channel, sub)
	return nil
}

// attach adds sub and performs the activation transitions. It returns the
// tick context when an immediate tick is due.
func (e *Emitter) attach(sub *Subscription) (context.Context, error) {
	e.transition.Lock()
	defer e.transition.Unlock()

	e.mu.RLock()
	p := e.provider
	activate := e.subs.total() == 0
	startData := sub.channel == core.ChannelData && e.subs.count(core.ChannelData) == 0
	e.mu.RUnlock()

	if activate {
		e.attachErrorBridge(p)
	}
	if startData {
		e.attachDataBridge(p)
	}
	if activate {
		if err := p.TurnON(); err != nil {
			e.rollback(p)
			e.logger.Warn("provider activation failed", "feed", e.name, "err", err)
			return nil, fmt.Errorf("%w: %w", core.ErrActivation, err)
		}
		emitterActivationsTotal.WithLabelValues(e.name).Inc()
		emitterProviderActive.WithLabelValues(e.name).Set(1)
		e.logger.Debug("provider turned on", "feed", e.name)
	}

	var immediate context.Context
	e.mu.Lock()
	e.subs.add(sub)
	if startData {
		e.startTickerLocked()
		if e.runImmediately {
			immediate = e.tickCtx
		}
	}
	e.mu.Unlock()

	emitterSubscribers.WithLabelValues(e.name, string(sub.channel)).Inc()
	return immediate, nil
}

// rollback undoes a failed activation. Called with transition held and no
// subscriber registered.
func (e *Emitter) rollback(p core.Provider) {
	e.mu.Lock()
	e.detachDataBridgeLocked()
	e.detachErrorBridgeLocked()
	e.mu.Unlock()

	if p.IsTurnedON() {
		if err := p.TurnOFF(); err != nil {
			e.logger.Warn("provider turn off after failed activation", "feed", e.name, "err", err)
		}
	}
	p.RemoveAllListeners()
}

// Unsubscribe removes sub. It reports false when sub is not registered, in
// which case nothing happens.
func (e *Emitter) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	e.transition.Lock()
	removed := e.detach(sub)
	e.transition.Unlock()

	if removed {
		e.hooks.OnRemoveListener(e, sub.channel, sub)
	}
	return removed
}

// UnsubscribeAll removes every subscription and returns how many were removed.
func (e *Emitter) UnsubscribeAll() int {
	e.transition.Lock()
	e.mu.RLock()
	all := e.subs.all()
	e.mu.RUnlock()

	var removed []*Subscription
	for _, sub := range all {
		if e.detach(sub) {
			removed = append(removed, sub)
		}
	}
	e.transition.Unlock()

	for _, sub := range removed {
		e.hooks.OnRemoveListener(e, sub.channel, sub)
	}
	return len(removed)
}

// detach removes sub and performs the deactivation transitions. Called with
// transition held.
func (e *Emitter) detach(sub *Subscription) bool {
	e.mu.Lock()
	if !e.subs.remove(sub) {
		e.mu.Unlock()
		return false
	}
	p := e.provider
	if sub.channel == core.ChannelData && e.subs.count(core.ChannelData) == 0 {
		e.stopTickerLocked()
		e.detachDataBridgeLocked()
	}
	deactivate := e.subs.total() == 0
	if deactivate {
		e.lastData = nil
		e.hasData = false
		e.detachErrorBridgeLocked()
	}
	e.mu.Unlock()

	emitterSubscribers.WithLabelValues(e.name, string(sub.channel)).Dec()

	if deactivate {
		if err := p.TurnOFF(); err != nil {
			e.logger.Warn("provider turn off", "feed", e.name, "err", err)
		}
		p.RemoveAllListeners()
		emitterProviderActive.WithLabelValues(e.name).Set(0)
		e.logger.Debug("provider turned off", "feed", e.name)
	}
	return true
}

// CurrentData returns the last accepted value, or nil. With fields, the value
// is projected with Pick.
func (e *Emitter) CurrentData(fields ...string) any {
	e.mu.RLock()
	v, ok := e.lastData, e.hasData
	e.mu.RUnlock()
	if !ok {
		return nil
	}
	if len(fields) == 0 {
		return v
	}
	return Pick(v, fields...)
}

// ListenerCount returns the number of subscriptions on ch.
func (e *Emitter) ListenerCount(ch core.Channel) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.subs.count(ch)
}

// DataHasListeners reports whether at least one data subscription exists.
func (e *Emitter) DataHasListeners() bool {
	return e.ListenerCount(core.ChannelData) > 0
}

// IsListening reports whether sub is currently registered.
func (e *Emitter) IsListening(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.subs.has(sub)
}

// Active reports whether the tick is running.
func (e *Emitter) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCancel != nil
}

func (e *Emitter) attachDataBridge(p core.Provider) {
	e.mu.Lock()
	e.dataEpoch++
	epoch := e.dataEpoch
	e.mu.Unlock()

	off := p.Listen(core.SignalData, func(v any) { e.onProviderData(epoch, v) })

	e.mu.Lock()
	e.dataOff = off
	e.mu.Unlock()
}

func (e *Emitter) attachErrorBridge(p core.Provider) {
	e.mu.Lock()
	e.errorEpoch++
	epoch := e.errorEpoch
	e.mu.Unlock()

	off := p.Listen(core.SignalError, func(v any) { e.onProviderError(epoch, v) })

	e.mu.Lock()
	e.errorOff = off
	e.mu.Unlock()
}

func (e *Emitter) detachDataBridgeLocked() {
	e.dataEpoch++
	if e.dataOff != nil {
		e.dataOff()
		e.dataOff = nil
	}
}

func (e *Emitter) detachErrorBridgeLocked() {
	e.errorEpoch++
	if e.errorOff != nil {
		e.errorOff()
		e.errorOff = nil
	}
}

func (e *Emitter) onProviderData(epoch uint64, v any) {
	e.mu.RLock()
	current := e.dataEpoch == epoch
	e.mu.RUnlock()
	if !current {
		return
	}

	accepted, err := e.hooks.OnProviderData(e, v)
	if err != nil {
		e.logger.Debug("provider data rejected", "feed", e.name, "err", err)
		e.broadcastError(err)
		return
	}

	e.mu.Lock()
	if e.dataEpoch != epoch {
		e.mu.Unlock()
		return
	}
	e.lastData = accepted
	e.hasData = true
	e.mu.Unlock()

	emitterDataTotal.WithLabelValues(e.name).Inc()
	e.broadcast(core.ChannelData, accepted)
}

func (e *Emitter) onProviderError(epoch uint64, v any) {
	e.mu.RLock()
	current := e.errorEpoch == epoch
	e.mu.RUnlock()
	if !current {
		return
	}

	err, ok := v.(error)
	if !ok {
		err = fmt.Errorf("%v", v)
	}
	if out := e.hooks.OnProviderError(e, err); out != nil {
		e.broadcastError(out)
	}
}

func (e *Emitter) broadcastError(err error) {
	emitterErrorsTotal.WithLabelValues(e.name).Inc()
	e.broadcast(core.ChannelError, err)
}

func (e *Emitter) broadcast(ch core.Channel, v any) {
	e.mu.RLock()
	subs := e.subs.snapshot(ch)
	e.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(v)
	}
}

func (e *Emitter) startTickerLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	e.tickCtx, e.tickCancel = ctx, cancel

	go func() {
		t := time.NewTicker(e.delay)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				e.tick(ctx)
			}
		}
	}()
}

// stopTickerLocked cancels the tick without waiting for a running tick to
// return, so a tick may unsubscribe.
func (e *Emitter) stopTickerLocked() {
	if e.tickCancel != nil {
		e.tickCancel()
	}
	e.tickCtx, e.tickCancel = nil, nil
}

// tick asks the provider for data and runs the Interval hook. A tick that
// overlaps a running one is skipped.
func (e *Emitter) tick(ctx context.Context) {
	if !e.tickMu.TryLock() {
		e.logger.Debug("tick skipped, previous tick still running", "feed", e.name)
		return
	}
	defer e.tickMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	emitterTicksTotal.WithLabelValues(e.name).Inc()
	if e.autoRequest {
		e.Provider().RequestData(nil)
	}
	e.hooks.Interval(e)
}
