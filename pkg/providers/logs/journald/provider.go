package journald

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/provider"
)

// Provider follows the journal of one systemd unit while ON. Each journal
// entry becomes one core.Line data value.
type Provider struct {
	*provider.Stream

	unit    string
	backlog int
	logger  *slog.Logger
	command func(ctx context.Context) *exec.Cmd
}

// New creates a new journald provider for unit. backlog is the number of
// past entries replayed on TurnON.
func New(unit string, backlog int, logger *slog.Logger) *Provider {
	p := &Provider{unit: unit, backlog: backlog, logger: logger}
	p.command = func(ctx context.Context) *exec.Cmd {
		return exec.CommandContext(ctx, "journalctl", "-f", "-u", p.unit, "-o", "cat", "-n", strconv.Itoa(p.backlog))
	}
	p.Stream = provider.NewStream("journald", p.start, logger)
	return p
}

func (p *Provider) start(ctx context.Context) (func(), error) {
	cmd := p.command(ctx)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("journalctl pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("journalctl start: %w", err)
	}

	p.logger.Info("following journal", "unit", p.unit)
	return func() {
		err := provider.ScanLines(stdout, func(line string) {
			p.SetData(core.Line{
				Source:   p.unit,
				TsUnixMs: time.Now().UnixMilli(),
				Stream:   "journal",
				Line:     line,
			})
		})
		werr := cmd.Wait()
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = werr
		}
		if err == nil {
			err = fmt.Errorf("journalctl exited")
		}
		p.SetError(fmt.Errorf("journal %s: %w", p.unit, err))
	}, nil
}
