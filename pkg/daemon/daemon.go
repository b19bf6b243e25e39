package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/modoterra/livefeed/pkg/config"
	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/emitter"
	"github.com/modoterra/livefeed/pkg/publish"
	"github.com/modoterra/livefeed/pkg/transport/uds"
)

// ProviderFactory builds the provider behind a configured feed.
type ProviderFactory func(name string, f config.Feed, logger *slog.Logger) (core.Provider, error)

// Option configures a Daemon.
type Option func(*Daemon)

// WithPublisher forwards every data value of feeds flagged with publish to
// p under subjects starting with prefix.
func WithPublisher(p publish.Publisher, prefix string) Option {
	return func(d *Daemon) {
		d.publisher = p
		d.prefix = prefix
	}
}

// WithProviderFactory replaces NewProvider.
func WithProviderFactory(f ProviderFactory) Option {
	return func(d *Daemon) { d.factory = f }
}

// feed is one configured emitter.
type feed struct {
	name    string
	cfg     config.Feed
	emitter *emitter.Emitter
}

// clientSub is a subscription held on behalf of a connection.
type clientSub struct {
	feed *feed
	sub  *emitter.Subscription
}

// Daemon is the livefeedd process: one emitter per configured feed, exposed
// over the UDS transport.
type Daemon struct {
	server    *uds.Server
	feeds     map[string]*feed
	names     []string
	factory   ProviderFactory
	publisher publish.Publisher
	prefix    string
	logger    *slog.Logger

	mu    sync.Mutex
	conns map[string]map[string]clientSub
}

// New creates a daemon for cfg. Every feed gets its provider built and
// registered up front; nothing is turned on until someone subscribes.
func New(cfg *config.Config, socketPath string, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{
		server:  uds.NewServer(socketPath, logger),
		feeds:   make(map[string]*feed, len(cfg.Feeds)),
		factory: NewProvider,
		logger:  logger,
		conns:   make(map[string]map[string]clientSub),
	}
	for _, opt := range opts {
		opt(d)
	}

	for name, fc := range cfg.Feeds {
		f, err := d.buildFeed(name, fc)
		if err != nil {
			return nil, err
		}
		d.feeds[name] = f
		d.names = append(d.names, name)
	}
	sort.Strings(d.names)

	d.registerHandlers()
	d.server.OnDisconnect(d.dropConn)
	return d, nil
}

func (d *Daemon) buildFeed(name string, fc config.Feed) (*feed, error) {
	logger := d.logger.With("feed", name)
	p, err := d.factory(name, fc, logger)
	if err != nil {
		return nil, fmt.Errorf("feed %q: %w", name, err)
	}
	e := emitter.New(
		emitter.WithName(name),
		emitter.WithDelay(fc.Delay.Duration),
		emitter.WithRunImmediately(fc.RunImmediately),
		emitter.WithAutoRequest(fc.AutoRequestEnabled()),
		emitter.WithLogger(logger),
		emitter.WithHooks(feedHooks{require: fc.Require, logger: logger}),
	)
	if err := e.RegisterProvider(p); err != nil {
		return nil, fmt.Errorf("feed %q: %w", name, err)
	}
	return &feed{name: name, cfg: fc, emitter: e}, nil
}

// Feed returns the emitter of a configured feed.
func (d *Daemon) Feed(name string) (*emitter.Emitter, bool) {
	f, ok := d.feeds[name]
	if !ok {
		return nil, false
	}
	return f.emitter, true
}

// Run starts publishing and serves clients until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.startPublishing(ctx); err != nil {
		return err
	}
	return d.server.Start(ctx)
}

// Shutdown closes the transport, releases every subscription and closes
// the publisher.
func (d *Daemon) Shutdown() {
	d.server.Shutdown()

	d.mu.Lock()
	d.conns = make(map[string]map[string]clientSub)
	d.mu.Unlock()

	for _, name := range d.names {
		if n := d.feeds[name].emitter.UnsubscribeAll(); n > 0 {
			d.logger.Debug("feed released", "feed", name, "subscriptions", n)
		}
	}
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			d.logger.Warn("close publisher", "err", err)
		}
	}
}

func (d *Daemon) lookup(name string) (*feed, error) {
	f, ok := d.feeds[name]
	if !ok {
		return nil, fmt.Errorf("unknown feed: %q", name)
	}
	return f, nil
}

// track records a subscription against a connection.
func (d *Daemon) track(connID string, cs clientSub) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs, ok := d.conns[connID]
	if !ok {
		subs = make(map[string]clientSub)
		d.conns[connID] = subs
	}
	subs[cs.sub.ID().String()] = cs
}

// untrack removes the listed subscriptions of a connection, or all of them
// when ids is empty, and returns what was removed.
func (d *Daemon) untrack(connID string, ids []string) []clientSub {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := d.conns[connID]
	var out []clientSub
	if len(ids) == 0 {
		for _, cs := range subs {
			out = append(out, cs)
		}
		delete(d.conns, connID)
		return out
	}
	for _, id := range ids {
		if cs, ok := subs[id]; ok {
			out = append(out, cs)
			delete(subs, id)
		}
	}
	if len(subs) == 0 {
		delete(d.conns, connID)
	}
	return out
}

func (d *Daemon) release(subs []clientSub) int {
	n := 0
	for _, cs := range subs {
		if cs.feed.emitter.Unsubscribe(cs.sub) {
			n++
		}
	}
	return n
}

func (d *Daemon) dropConn(c *uds.Conn) {
	if n := d.release(d.untrack(c.ID(), nil)); n > 0 {
		d.logger.Debug("connection subscriptions released", "conn", c.ID(), "count", n, "clients", d.server.Clients())
	}
}

// Subscriptions returns how many subscriptions connections currently hold.
func (d *Daemon) Subscriptions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, subs := range d.conns {
		n += len(subs)
	}
	return n
}
