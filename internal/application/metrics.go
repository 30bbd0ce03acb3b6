package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mycelium",
		Name:      "sessions_scheduled_total",
		Help:      "Number of collective pulse sessions scheduled.",
	})
	metricSessionsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mycelium",
		Name:      "sessions_delivered_total",
		Help:      "Number of sessions that reached the delivered state.",
	})
	metricSessionsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mycelium",
		Name:      "sessions_cancelled_total",
		Help:      "Number of sessions cancelled, by cause.",
	}, []string{"cause"})
	metricParticipantDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mycelium",
		Name:      "participant_deliveries_total",
		Help:      "Per-participant delivery attempts, by status.",
	}, []string{"status"})
	metricFanOutSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mycelium",
		Name:      "fanout_duration_seconds",
		Help:      "Wall time spent fanning a pulse out to all participants.",
		Buckets:   prometheus.DefBuckets,
	})
	metricReflections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mycelium",
		Name:      "reflections_submitted_total",
		Help:      "Number of reflection entries appended.",
	})
)

func recordScheduled() {
	metricSessionsScheduled.Inc()
}

func recordDelivered(seconds float64) {
	metricSessionsDelivered.Inc()
	metricFanOutSeconds.Observe(seconds)
}

func recordCancelled(cause string) {
	metricSessionsCancelled.WithLabelValues(cause).Inc()
}

func recordParticipantDelivery(ok bool) {
	status := "delivered"
	if !ok {
		status = "failed"
	}
	metricParticipantDeliveries.WithLabelValues(status).Inc()
}

func recordReflection() {
	metricReflections.Inc()
}
