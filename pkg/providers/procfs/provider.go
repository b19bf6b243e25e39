package procfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/provider"
)

// DefaultKeywords selects the processes worth reporting when none are configured.
var DefaultKeywords = []string{
	"nginx", "php-fpm", "php", "node", "npm", "redis", "mysql", "mariadbd",
	"postgres", "docker", "artisan", "queue:work", "schedule:",
	"python", "gunicorn", "uvicorn", "java", "reverb",
}

// Provider reports matching processes from /proc on every data request.
// Snapshots look like {"count": n, "processes": []core.Item}.
type Provider struct {
	*provider.Poll

	root     string
	keywords []string
	logger   *slog.Logger
}

type Option func(*Provider)

// WithRoot reads processes from dir instead of /proc.
func WithRoot(dir string) Option {
	return func(p *Provider) { p.root = dir }
}

// WithKeywords replaces DefaultKeywords. Matching is case-insensitive on the
// full command line.
func WithKeywords(kw ...string) Option {
	return func(p *Provider) {
		if len(kw) > 0 {
			p.keywords = kw
		}
	}
}

// New creates a new procfs provider.
func New(logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{root: "/proc", keywords: DefaultKeywords, logger: logger}
	for _, o := range opts {
		o(p)
	}
	p.Poll = provider.NewPoll(p.fetch, provider.WithName("procfs"), provider.WithLogger(logger))
	return p
}

func (p *Provider) fetch(ctx context.Context, _ any) (any, error) {
	items, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(items), "processes": items}, nil
}

// List scans the proc root once.
func (p *Provider) List(ctx context.Context) ([]core.Item, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.root, err)
	}

	items := []core.Item{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}

		cmdline, err := os.ReadFile(filepath.Join(p.root, e.Name(), "cmdline"))
		if err != nil {
			continue
		}
		cmd := strings.ReplaceAll(string(cmdline), "\x00", " ")
		cmd = strings.TrimSpace(cmd)
		if cmd == "" || !p.matches(cmd) {
			continue
		}

		items = append(items, core.Item{
			ID:       core.ItemID(core.KindProcess, "procfs", strconv.Itoa(pid)),
			Kind:     core.KindProcess,
			Name:     filepath.Base(strings.Fields(cmd)[0]),
			State:    core.StateRunning,
			PIDs:     []int{pid},
			MemBytes: p.rss(e.Name()),
			Source:   map[string]string{"cmdline": cmd},
		})
	}
	return items, nil
}

func (p *Provider) matches(cmdline string) bool {
	lower := strings.ToLower(cmdline)
	for _, kw := range p.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// rss reads the resident set size from statm, 0 when unavailable.
func (p *Provider) rss(pid string) uint64 {
	b, err := os.ReadFile(filepath.Join(p.root, pid, "statm"))
	if err != nil {
		return 0
	}
	f := strings.Fields(string(b))
	if len(f) < 2 {
		return 0
	}
	pages, err := strconv.ParseUint(f[1], 10, 64)
	if err != nil {
		return 0
	}
	return pages * uint64(os.Getpagesize())
}
