package exec

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/provider"
)

// Config describes a supervised command.
type Config struct {
	Command string
	Dir     string
	Env     map[string]string
	Restart core.RestartPolicy
}

// Provider runs a long-lived command while ON. Every stdout and stderr line
// becomes a core.Line data value; a non-zero exit becomes an *ExitError on
// the error signal, followed by a restart when the policy allows it.
type Provider struct {
	*provider.Stream

	name      string
	cfg       Config
	logger    *slog.Logger
	backoff   func(failures int) time.Duration
	stopGrace time.Duration

	mu        sync.Mutex
	pid       int
	state     core.State
	startedAt time.Time
}

// New creates an exec provider. An empty restart policy means on-failure.
func New(name string, cfg Config, logger *slog.Logger) *Provider {
	if cfg.Restart == "" {
		cfg.Restart = core.RestartOnFailure
	}
	p := &Provider{
		name:      name,
		cfg:       cfg,
		logger:    logger,
		backoff:   backoff,
		stopGrace: 10 * time.Second,
		state:     core.StateStopped,
	}
	p.Stream = provider.NewStream("exec", p.start, logger)
	return p
}

func (p *Provider) start(ctx context.Context) (func(), error) {
	cmd, exited, err := p.spawn(ctx)
	if err != nil {
		return nil, err
	}
	return func() { p.supervise(ctx, cmd, exited) }, nil
}

// Process returns the process state, its pid while running and when it was
// last started.
func (p *Provider) Process() (core.State, int, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.pid, p.startedAt
}
