package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BusMetrics tracks delivery and dispatch statistics. Collectors are created
// unregistered; call Register with the host application's registerer to expose
// them. All methods are safe on a nil receiver so metrics stay optional.
type BusMetrics struct {
	publishedTotal    *prometheus.CounterVec
	durableFailures   *prometheus.CounterVec
	broadcastFailures *prometheus.CounterVec
	batchSize         prometheus.Histogram
	dispatchedTotal   *prometheus.CounterVec
	droppedTotal      *prometheus.CounterVec
}

func newBusCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gravity",
			Subsystem: "bus",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewBusMetrics creates the collector set.
func NewBusMetrics() *BusMetrics {
	return &BusMetrics{
		publishedTotal: newBusCounterVec("messages_published_total",
			"Messages accepted for delivery, by kind and channel.",
			[]string{"kind", "channel"}),
		durableFailures: newBusCounterVec("durable_append_failures_total",
			"Durable log appends that failed and fell back to broadcast-only.",
			[]string{"stream"}),
		broadcastFailures: newBusCounterVec("broadcast_failures_total",
			"Broadcast publishes that failed after retries.",
			[]string{"channel"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gravity",
			Subsystem: "bus",
			Name:      "batch_size",
			Help:      "Entries per batched delivery.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		dispatchedTotal: newBusCounterVec("messages_dispatched_total",
			"Inbound broadcasts dispatched to at least one handler.",
			[]string{"channel"}),
		droppedTotal: newBusCounterVec("messages_dropped_total",
			"Inbound broadcasts dropped, by reason.",
			[]string{"reason"}),
	}
}

// Register attaches the collectors to the given registerer.
func (m *BusMetrics) Register(reg prometheus.Registerer) error {
	if m == nil || reg == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{
		m.publishedTotal, m.durableFailures, m.broadcastFailures,
		m.batchSize, m.dispatchedTotal, m.droppedTotal,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *BusMetrics) recordPublished(kind, channel string) {
	if m == nil {
		return
	}
	m.publishedTotal.WithLabelValues(kind, channel).Inc()
}

func (m *BusMetrics) recordDurableFailure(stream string) {
	if m == nil {
		return
	}
	m.durableFailures.WithLabelValues(stream).Inc()
}

func (m *BusMetrics) recordBroadcastFailure(channel string) {
	if m == nil {
		return
	}
	m.broadcastFailures.WithLabelValues(channel).Inc()
}

func (m *BusMetrics) recordBatch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}

func (m *BusMetrics) recordDispatched(channel string) {
	if m == nil {
		return
	}
	m.dispatchedTotal.WithLabelValues(channel).Inc()
}

func (m *BusMetrics) recordDropped(reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(reason).Inc()
}
