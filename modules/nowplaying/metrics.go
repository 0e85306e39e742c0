package nowplaying

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "celestiaradio"

var (
	metricPollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "poll_cycles_total",
		Help:      "Poll cycles by result.",
	}, []string{"result"})

	metricRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "refreshes_total",
		Help:      "Waits between poll cycles cut short by a refresh.",
	})

	metricCurrentListeners = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "current_listeners",
		Help:      "Listener count from the latest stats snapshot.",
	})

	metricLastUpdate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "last_update_timestamp_seconds",
		Help:      "Unix time of the latest successful poll.",
	})
)
