package httpget

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/modoterra/livefeed/pkg/provider"
)

// Provider fetches a URL on every data request. JSON bodies are decoded into
// the snapshot; other bodies are passed on as a string. Non-2xx responses are
// errors.
type Provider struct {
	*provider.Poll

	url     string
	headers map[string]string
	client  *http.Client
	logger  *slog.Logger
}

// New creates an HTTP provider. timeout bounds each request; zero means 10s.
func New(url string, headers map[string]string, timeout time.Duration, logger *slog.Logger) *Provider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &Provider{
		url:     url,
		headers: headers,
		client:  &http.Client{},
		logger:  logger,
	}
	p.Poll = provider.NewPoll(p.fetch,
		provider.WithName("http"),
		provider.WithLogger(logger),
		provider.WithTimeout(timeout),
	)
	return p
}

func (p *Provider) fetch(ctx context.Context, _ any) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: status %d", p.url, resp.StatusCode)
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body), nil
	}
	return v, nil
}
