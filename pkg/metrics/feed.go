package metrics

import "github.com/prometheus/client_golang/prometheus"

// FeedMetrics tracks the load-board change feed.
type FeedMetrics struct {
	events  *prometheus.CounterVec
	viewers prometheus.Gauge
}

func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	if reg == nil {
		return &FeedMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "changes_total",
		Help:      "Change events applied to the load board.",
	}, []string{"op"})
	viewers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "stream_viewers",
		Help:      "Open load-board streams.",
	})
	reg.MustRegister(events, viewers)
	return &FeedMetrics{events: events, viewers: viewers}
}

func (m *FeedMetrics) IncChange(op string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(label(op)).Inc()
}

func (m *FeedMetrics) ViewerJoined() {
	if m == nil || m.viewers == nil {
		return
	}
	m.viewers.Inc()
}

func (m *FeedMetrics) ViewerLeft() {
	if m == nil || m.viewers == nil {
		return
	}
	m.viewers.Dec()
}
