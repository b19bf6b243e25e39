// Package static provides a provider that answers every data request with
// the same value.
package static

import (
	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/provider"
)

// Provider answers with a fixed value.
type Provider struct {
	*provider.Base
	value any
}

// New returns an OFF provider that will answer with value.
func New(value any) *Provider {
	return &Provider{Base: provider.NewBase(), value: value}
}

// TurnON starts answering wantsData.
func (p *Provider) TurnON() error {
	if p.IsTurnedON() {
		return nil
	}
	p.Listen(core.SignalWantsData, func(any) { p.SetData(p.value) })
	return p.Base.TurnON()
}
