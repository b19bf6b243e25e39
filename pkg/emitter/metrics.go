package emitter

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	emitterSubscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "livefeed_emitter_subscribers",
			Help: "Current number of subscriptions by feed and channel.",
		},
		[]string{"feed", "channel"},
	)
	emitterTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livefeed_emitter_ticks_total",
			Help: "Number of interval ticks run by feed.",
		},
		[]string{"feed"},
	)
	emitterDataTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livefeed_emitter_data_total",
			Help: "Number of provider values accepted and broadcast by feed.",
		},
		[]string{"feed"},
	)
	emitterErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livefeed_emitter_errors_total",
			Help: "Number of errors broadcast by feed, including rejected values.",
		},
		[]string{"feed"},
	)
	emitterActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livefeed_emitter_activations_total",
			Help: "Number of provider activations by feed.",
		},
		[]string{"feed"},
	)
	emitterProviderActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "livefeed_emitter_provider_active",
			Help: "Whether the feed's provider is turned on (1) or off (0).",
		},
		[]string{"feed"},
	)
)

func init() {
	prometheus.MustRegister(
		emitterSubscribers,
		emitterTicksTotal,
		emitterDataTotal,
		emitterErrorsTotal,
		emitterActivationsTotal,
		emitterProviderActive,
	)
}
