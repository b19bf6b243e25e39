package docker

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/provider"
)

// Provider reports the services of a compose file. The file is re-read on
// every data request. Snapshots look like
// {"project": name, "services": []core.Item}.
type Provider struct {
	*provider.Poll

	file    string
	project string
	skip    map[string]bool
	logger  *slog.Logger
}

// New creates a compose provider for file. An empty project falls back to the
// file's name key, then to its directory name.
func New(file, project string, skip []string, logger *slog.Logger) *Provider {
	p := &Provider{
		file:    file,
		project: project,
		skip:    make(map[string]bool, len(skip)),
		logger:  logger,
	}
	for _, s := range skip {
		p.skip[s] = true
	}
	p.Poll = provider.NewPoll(p.fetch, provider.WithName("compose"), provider.WithLogger(logger))
	return p
}

func (p *Provider) fetch(_ context.Context, _ any) (any, error) {
	cf, err := ParseComposeFile(p.file)
	if err != nil {
		return nil, err
	}
	project := p.projectName(cf)

	defs := AutoImport(cf, p.skip, project)
	items := make([]core.Item, 0, len(defs))
	for _, c := range defs {
		items = append(items, core.Item{
			ID:    core.ItemID(core.KindDocker, "compose", c.Name),
			Kind:  core.KindDocker,
			Name:  c.Name,
			State: core.StateUnknown,
			Source: map[string]string{
				"container": c.Container,
				"service":   c.Service,
				"image":     c.Image,
				"ports":     strings.Join(c.Ports, ","),
				"compose":   p.file,
			},
		})
	}
	return map[string]any{"project": project, "services": items}, nil
}

func (p *Provider) projectName(cf *ComposeFile) string {
	if p.project != "" {
		return p.project
	}
	if cf.Name != "" {
		return cf.Name
	}
	return filepath.Base(filepath.Dir(p.file))
}
