package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modoterra/livefeed/internal/buildinfo"
	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/emitter"
	"github.com/modoterra/livefeed/pkg/transport/uds"
)

// freshTimeout bounds how long GetCurrent waits for a fresh snapshot.
var freshTimeout = 10 * time.Second

func (d *Daemon) registerHandlers() {
	d.server.Handle(uds.MethodPing, d.handlePing)
	d.server.Handle(uds.MethodListFeeds, d.handleListFeeds)
	d.server.Handle(uds.MethodSubscribe, d.handleSubscribe)
	d.server.Handle(uds.MethodUnsubscribe, d.handleUnsubscribe)
	d.server.Handle(uds.MethodGetCurrent, d.handleGetCurrent)
}

func (d *Daemon) handlePing(context.Context, *uds.Conn, uds.Message) (any, error) {
	return uds.PingResponse{Pong: true, Version: buildinfo.Version}, nil
}

// processInfo is implemented by providers that supervise a process.
type processInfo interface {
	Process() (core.State, int, time.Time)
}

func (d *Daemon) handleListFeeds(context.Context, *uds.Conn, uds.Message) (any, error) {
	out := uds.ListFeedsResponse{Feeds: make([]uds.FeedInfo, 0, len(d.names))}
	for _, name := range d.names {
		out.Feeds = append(out.Feeds, d.describe(d.feeds[name]))
	}
	return out, nil
}

func (d *Daemon) describe(f *feed) uds.FeedInfo {
	e := f.emitter
	info := uds.FeedInfo{
		Name:        f.name,
		Kind:        f.cfg.Kind,
		Delay:       e.Delay().String(),
		Active:      e.Active(),
		Provider:    string(core.StatusOFF),
		DataSubs:    e.ListenerCount(core.ChannelData),
		ErrorSubs:   e.ListenerCount(core.ChannelError),
		HasSnapshot: e.CurrentData() != nil,
	}
	if p := e.Provider(); p != nil {
		if p.IsTurnedON() {
			info.Provider = string(core.StatusON)
		}
		if pi, ok := p.(processInfo); ok {
			state, pid, _ := pi.Process()
			info.State = string(state)
			info.PID = pid
		}
	}
	return info
}

func (d *Daemon) handleSubscribe(_ context.Context, c *uds.Conn, msg uds.Message) (any, error) {
	var req uds.SubscribeRequest
	if err := msg.UnmarshalData(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	f, err := d.lookup(req.Feed)
	if err != nil {
		return nil, err
	}

	names := req.Channels
	if len(names) == 0 {
		names = []string{string(core.ChannelData)}
	}
	channels := make([]core.Channel, 0, len(names))
	for _, n := range names {
		ch, err := core.ParseChannel(n)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	var (
		out  uds.SubscribeResponse
		held []clientSub
	)
	for _, ch := range channels {
		sub, err := f.emitter.Subscribe(ch, d.forward(c, f.name, ch, req.Fields))
		if err != nil {
			d.release(held)
			return nil, err
		}
		cs := clientSub{feed: f, sub: sub}
		held = append(held, cs)
		out.Subscriptions = append(out.Subscriptions, uds.SubscriptionInfo{
			ID:      sub.ID().String(),
			Feed:    f.name,
			Channel: string(ch),
		})
	}
	for _, cs := range held {
		d.track(c.ID(), cs)
	}
	return out, nil
}

// forward returns a listener that pushes values to one connection.
func (d *Daemon) forward(c *uds.Conn, feedName string, ch core.Channel, fields []string) emitter.Listener {
	method := uds.EventFeedData
	if ch == core.ChannelError {
		method = uds.EventFeedError
	}
	return func(v any) {
		evt := uds.FeedEvent{Feed: feedName, Channel: string(ch), TsUnixMs: time.Now().UnixMilli()}
		if ch == core.ChannelError {
			evt.Error = errorText(v)
		} else {
			if len(fields) > 0 {
				v = emitter.Pick(v, fields...)
			}
			b, err := json.Marshal(v)
			if err != nil {
				d.logger.Warn("encode feed value", "feed", feedName, "err", err)
				return
			}
			evt.Data = b
		}
		msg, err := uds.NewEvent(method, evt)
		if err != nil {
			d.logger.Warn("build event", "feed", feedName, "err", err)
			return
		}
		if err := c.Send(msg); err != nil {
			d.logger.Debug("send event", "feed", feedName, "conn", c.ID(), "err", err)
		}
	}
}

func errorText(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}

func (d *Daemon) handleUnsubscribe(_ context.Context, c *uds.Conn, msg uds.Message) (any, error) {
	var req uds.UnsubscribeRequest
	if err := msg.UnmarshalData(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	n := d.release(d.untrack(c.ID(), req.IDs))
	return uds.UnsubscribeResponse{Removed: n}, nil
}

func (d *Daemon) handleGetCurrent(ctx context.Context, _ *uds.Conn, msg uds.Message) (any, error) {
	var req uds.GetCurrentRequest
	if err := msg.UnmarshalData(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	f, err := d.lookup(req.Feed)
	if err != nil {
		return nil, err
	}
	fields := req.Fields
	if len(fields) == 0 {
		fields = f.cfg.Fields
	}

	var v any
	if req.Fresh {
		if v, err = d.awaitNext(ctx, f); err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			v = emitter.Pick(v, fields...)
		}
	} else {
		v = f.emitter.CurrentData(fields...)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return uds.GetCurrentResponse{Feed: f.name, Data: b}, nil
}

// awaitNext holds a one-shot subscription on both channels until the feed
// produces a value or an error.
func (d *Daemon) awaitNext(ctx context.Context, f *feed) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, freshTimeout)
	defer cancel()

	type result struct {
		v   any
		err error
	}
	done := make(chan result, 2)

	errSub, err := f.emitter.Once(core.ChannelError, func(v any) {
		done <- result{err: errors.New(errorText(v))}
	})
	if err != nil {
		return nil, err
	}
	defer f.emitter.Unsubscribe(errSub)

	dataSub, err := f.emitter.Once(core.ChannelData, func(v any) {
		done <- result{v: v}
	})
	if err != nil {
		return nil, err
	}
	defer f.emitter.Unsubscribe(dataSub)

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("feed %q: no data: %w", f.name, ctx.Err())
	}
}
