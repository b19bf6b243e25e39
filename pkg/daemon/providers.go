package daemon

import (
	"fmt"
	"log/slog"

	"github.com/modoterra/livefeed/pkg/config"
	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/providers/docker"
	"github.com/modoterra/livefeed/pkg/providers/exec"
	"github.com/modoterra/livefeed/pkg/providers/httpget"
	"github.com/modoterra/livefeed/pkg/providers/logs/filetail"
	"github.com/modoterra/livefeed/pkg/providers/logs/journald"
	"github.com/modoterra/livefeed/pkg/providers/procfs"
	"github.com/modoterra/livefeed/pkg/providers/static"
	"github.com/modoterra/livefeed/pkg/providers/systemd"
	"github.com/modoterra/livefeed/pkg/providers/websocket"
)

// NewProvider builds the provider for a feed from its kind.
func NewProvider(name string, f config.Feed, logger *slog.Logger) (core.Provider, error) {
	switch f.Kind {
	case config.KindStatic:
		return static.New(f.Value), nil
	case config.KindProcfs:
		var opts []procfs.Option
		if len(f.Match) > 0 {
			opts = append(opts, procfs.WithKeywords(f.Match...))
		}
		return procfs.New(logger, opts...), nil
	case config.KindSystemd:
		return systemd.New(f.Units, logger), nil
	case config.KindJournald:
		return journald.New(f.Unit, f.Backlog, logger), nil
	case config.KindFiletail:
		return filetail.New(f.File, logger), nil
	case config.KindCompose:
		return docker.New(f.File, f.Project, f.Skip, logger), nil
	case config.KindExec:
		return exec.New(name, exec.Config{
			Command: f.Command,
			Dir:     f.Dir,
			Env:     f.Env,
			Restart: core.RestartPolicy(f.Restart),
		}, logger), nil
	case config.KindHTTP:
		return httpget.New(f.URL, f.Headers, f.Timeout.Duration, logger), nil
	case config.KindWebsocket:
		return websocket.New(f.URL, f.Hello, logger), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", f.Kind)
	}
}
