package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/provider"
)

// unitSource is the part of *dbus.Conn the provider uses.
type unitSource interface {
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]dbus.UnitStatus, error)
	GetUnitTypePropertiesContext(ctx context.Context, unit, unitType string) (map[string]interface{}, error)
	Close()
}

// Provider reports the state of systemd units via D-Bus. The bus connection
// is opened on TurnON and closed on TurnOFF. Snapshots look like
// {"units": []core.Item}.
type Provider struct {
	*provider.Poll

	units  []string
	logger *slog.Logger
	dial   func(ctx context.Context) (unitSource, error)

	mu   sync.Mutex
	conn unitSource
}

// New creates a new systemd provider for the given unit names.
func New(units []string, logger *slog.Logger) *Provider {
	p := &Provider{
		units:  units,
		logger: logger,
		dial: func(ctx context.Context) (unitSource, error) {
			return dbus.NewWithContext(ctx)
		},
	}
	p.Poll = provider.NewPoll(p.fetch, provider.WithName("systemd"), provider.WithLogger(logger))
	return p
}

// TurnON connects to the system bus.
func (p *Provider) TurnON() error {
	if p.IsTurnedON() {
		return nil
	}
	conn, err := p.dial(context.Background())
	if err != nil {
		return fmt.Errorf("dbus connect: %w", err)
	}
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
	return p.Poll.TurnON()
}

// TurnOFF closes the bus connection.
func (p *Provider) TurnOFF() error {
	err := p.Poll.TurnOFF()
	p.mu.Lock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.mu.Unlock()
	return err
}

func (p *Provider) fetch(ctx context.Context, _ any) (any, error) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("systemd: not connected")
	}

	items, err := list(ctx, conn, p.units)
	if err != nil {
		return nil, err
	}
	return map[string]any{"units": items}, nil
}

func list(ctx context.Context, conn unitSource, units []string) ([]core.Item, error) {
	allUnits, err := conn.ListUnitsByNamesContext(ctx, units)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	items := make([]core.Item, 0, len(allUnits))
	for _, u := range allUnits {
		item := core.Item{
			ID:    core.ItemID(core.KindSystemd, "system", u.Name),
			Kind:  core.KindSystemd,
			Name:  strings.TrimSuffix(u.Name, ".service"),
			State: mapState(u.ActiveState, u.SubState),
			Source: map[string]string{
				"unit":        u.Name,
				"activeState": u.ActiveState,
				"subState":    u.SubState,
				"loadState":   u.LoadState,
			},
		}
		if u.ActiveState == "active" {
			props, err := conn.GetUnitTypePropertiesContext(ctx, u.Name, "Service")
			if err == nil {
				if pid, ok := props["MainPID"].(uint32); ok && pid > 0 {
					item.PIDs = []int{int(pid)}
				}
				if mem, ok := props["MemoryCurrent"].(uint64); ok {
					item.MemBytes = mem
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func mapState(active, sub string) core.State {
	switch {
	case active == "active" && sub == "auto-restart":
		return core.StateRestarting
	case active == "active", active == "activating", active == "reloading":
		return core.StateRunning
	case active == "inactive", active == "deactivating":
		return core.StateStopped
	case active == "failed":
		return core.StateFailed
	default:
		return core.StateUnknown
	}
}
