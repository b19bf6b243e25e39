package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/modoterra/livefeed/pkg/provider"
)

// Provider holds a websocket connection open while ON. Each message becomes
// a data value: JSON messages are decoded, anything else is passed on as a
// string. Read failures are reported as errors and the connection is
// re-established with backoff.
type Provider struct {
	*provider.Stream

	url         string
	hello       string
	dialTimeout time.Duration
	maxBackoff  time.Duration
	logger      *slog.Logger
}

// New creates a websocket provider. hello, when set, is sent as a text
// message after every successful dial.
func New(url, hello string, logger *slog.Logger) *Provider {
	p := &Provider{
		url:         url,
		hello:       hello,
		dialTimeout: 10 * time.Second,
		maxBackoff:  30 * time.Second,
		logger:      logger,
	}
	p.Stream = provider.NewStream("websocket", p.start, logger)
	return p
}

func (p *Provider) start(ctx context.Context) (func(), error) {
	c, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	return func() { p.run(ctx, c) }, nil
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	c, _, err := websocket.Dial(dctx, p.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p.url, err)
	}
	c.SetReadLimit(1 << 20)

	if p.hello != "" {
		if err := c.Write(dctx, websocket.MessageText, []byte(p.hello)); err != nil {
			c.CloseNow()
			return nil, fmt.Errorf("write hello: %w", err)
		}
	}
	p.logger.Info("websocket connected", "url", p.url)
	return c, nil
}

func (p *Provider) run(ctx context.Context, c *websocket.Conn) {
	delay := time.Second
	for {
		err := p.read(ctx, c)
		c.CloseNow()
		if ctx.Err() != nil {
			return
		}
		p.SetError(fmt.Errorf("websocket %s: %w", p.url, err))

		for {
			p.logger.Info("websocket reconnecting", "url", p.url, "delay", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, p.maxBackoff)

			c, err = p.dial(ctx)
			if err == nil {
				delay = time.Second
				break
			}
			if ctx.Err() != nil {
				return
			}
			p.SetError(err)
		}
	}
}

func (p *Provider) read(ctx context.Context, c *websocket.Conn) error {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		var v any
		if json.Unmarshal(data, &v) == nil {
			p.SetData(v)
		} else {
			p.SetData(string(data))
		}
	}
}
