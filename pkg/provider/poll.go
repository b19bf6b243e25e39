package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
)

// FetchFunc produces one value for a wantsData request.
type FetchFunc func(ctx context.Context, opts any) (any, error)

// Poll is a pull-style provider: every wantsData request runs fetch in the
// background and reports the result through SetData or SetError. At most one
// fetch is in flight; requests arriving meanwhile are skipped.
type Poll struct {
	*Base

	name    string
	fetch   FetchFunc
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	inflight atomic.Bool
	skipped  atomic.Uint64
}

// PollOption configures a Poll provider.
type PollOption func(*Poll)

// WithTimeout bounds every fetch. Zero means no timeout.
func WithTimeout(d time.Duration) PollOption {
	return func(p *Poll) { p.timeout = d }
}

// WithLogger sets the logger used for skipped and failed fetches.
func WithLogger(l *slog.Logger) PollOption {
	return func(p *Poll) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithName labels log lines.
func WithName(name string) PollOption {
	return func(p *Poll) { p.name = name }
}

// NewPoll creates a pull provider around fetch.
func NewPoll(fetch FetchFunc, opts ...PollOption) *Poll {
	p := &Poll{
		Base:   NewBase(),
		name:   "poll",
		fetch:  fetch,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// TurnON starts answering wantsData requests.
func (p *Poll) TurnON() error {
	if p.IsTurnedON() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.Listen(core.SignalWantsData, func(opts any) { p.request(ctx, opts) })
	return p.Base.TurnON()
}

// TurnOFF cancels the fetch in flight, if any.
func (p *Poll) TurnOFF() error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
	return p.Base.TurnOFF()
}

// Skipped returns how many requests were dropped because a fetch was running.
func (p *Poll) Skipped() uint64 {
	return p.skipped.Load()
}

func (p *Poll) request(ctx context.Context, opts any) {
	if !p.inflight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		p.logger.Debug("fetch still running, request skipped", "provider", p.name)
		return
	}

	go func() {
		defer p.inflight.Store(false)

		fctx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}

		v, err := p.fetch(fctx, opts)
		if ctx.Err() != nil {
			// turned off while fetching
			return
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				p.logger.Warn("fetch timed out", "provider", p.name, "timeout", p.timeout)
			}
			p.SetError(err)
			return
		}
		p.SetData(v)
	}()
}
