package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/emitter"
)

// ErrIncomplete marks a snapshot rejected for missing required fields.
var ErrIncomplete = errors.New("incomplete snapshot")

// feedHooks rejects snapshots that lack required fields and logs listener
// changes.
type feedHooks struct {
	emitter.BaseHooks
	require []string
	logger  *slog.Logger
}

func (h feedHooks) OnProviderData(_ *emitter.Emitter, v any) (any, error) {
	if len(h.require) == 0 {
		return v, nil
	}
	got := emitter.Pick(v, h.require...)
	var missing []string
	for _, f := range h.require {
		if _, ok := got[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return v, nil
}

func (h feedHooks) OnProviderError(_ *emitter.Emitter, err error) error {
	h.logger.Warn("provider error", "err", err)
	return err
}

func (h feedHooks) OnNewListener(e *emitter.Emitter, ch core.Channel, sub *emitter.Subscription) {
	h.logger.Debug("listener added", "channel", ch, "sub", sub.ID(),
		"data_subs", e.ListenerCount(core.ChannelData), "error_subs", e.ListenerCount(core.ChannelError))
}

func (h feedHooks) OnRemoveListener(e *emitter.Emitter, ch core.Channel, sub *emitter.Subscription) {
	h.logger.Debug("listener removed", "channel", ch, "sub", sub.ID(),
		"data_subs", e.ListenerCount(core.ChannelData), "error_subs", e.ListenerCount(core.ChannelError))
}
