package daemon

import (
	"context"
	"encoding/json"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/emitter"
	"github.com/modoterra/livefeed/pkg/publish"
)

// startPublishing holds a data subscription on every feed flagged with
// publish, which keeps those feeds active for the daemon's lifetime.
func (d *Daemon) startPublishing(ctx context.Context) error {
	if d.publisher == nil {
		return nil
	}
	for _, name := range d.names {
		f := d.feeds[name]
		if !f.cfg.Publish {
			continue
		}
		subject := publish.Subject(d.prefix, name)
		fields := f.cfg.Fields
		_, err := f.emitter.Subscribe(core.ChannelData, func(v any) {
			if len(fields) > 0 {
				v = emitter.Pick(v, fields...)
			}
			payload, err := json.Marshal(v)
			if err != nil {
				d.logger.Warn("encode published value", "feed", name, "err", err)
				return
			}
			if err := d.publisher.Publish(ctx, subject, payload); err != nil {
				d.logger.Warn("publish", "feed", name, "subject", subject, "err", err)
			}
		})
		if err != nil {
			return err
		}
		d.logger.Info("publishing feed", "feed", name, "subject", subject)
	}
	return nil
}
