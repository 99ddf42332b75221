package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "pulsewatch_"

var (
	registerOnce sync.Once

	checksTotal     *prometheus.CounterVec
	checkLatency    *prometheus.HistogramVec
	checksSkipped   *prometheus.CounterVec
	resultsRejected prometheus.Counter

	transitionsTotal *prometheus.CounterVec
	alertsTotal      *prometheus.CounterVec
	deliveryFailed   *prometheus.CounterVec

	evictedTotal prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init registers the process-wide collectors. Recorders are no-ops until
// Init runs, so packages can record unconditionally in tests.
func Init() {
	registerOnce.Do(func() {
		checksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "checks_total",
				Help: "Total probes executed by outcome",
			},
			[]string{"outcome"},
		)
		checkLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "check_duration_seconds",
				Help:    "Probe wall time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		)
		checksSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "checks_skipped_total",
				Help: "Due probes not dispatched by reason",
			},
			[]string{"reason"},
		)
		resultsRejected = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "results_rejected_total",
				Help: "Check results rejected by the history store",
			},
		)
		transitionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "status_transitions_total",
				Help: "Derived status transitions by target status",
			},
			[]string{"to"},
		)
		alertsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_deliveries_total",
				Help: "Alert deliveries by channel type and result",
			},
			[]string{"channel", "result"},
		)
		deliveryFailed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_delivery_failed_total",
				Help: "Alert deliveries that exhausted their retries",
			},
			[]string{"channel"},
		)
		evictedTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "history_evicted_total",
				Help: "Check results removed by retention",
			},
		)
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "API requests by method and status class",
			},
			[]string{"method", "code"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)

		prometheus.MustRegister(
			checksTotal,
			checkLatency,
			checksSkipped,
			resultsRejected,
			transitionsTotal,
			alertsTotal,
			deliveryFailed,
			evictedTotal,
			httpRequests,
			httpLatency,
		)
	})
}

// ObserveCheck records one executed probe.
func ObserveCheck(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	if checksTotal != nil {
		checksTotal.WithLabelValues(outcome).Inc()
	}
	if checkLatency != nil {
		checkLatency.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

// IncCheckSkipped counts a due probe the scheduler could not dispatch.
func IncCheckSkipped(reason string) {
	if checksSkipped != nil {
		checksSkipped.WithLabelValues(reason).Inc()
	}
}

func IncResultRejected() {
	if resultsRejected != nil {
		resultsRejected.Inc()
	}
}

func IncTransition(to string) {
	if transitionsTotal != nil {
		transitionsTotal.WithLabelValues(to).Inc()
	}
}

// IncAlert counts a finished delivery, result is sent or failed.
func IncAlert(channel, result string) {
	if channel == "" {
		channel = "unknown"
	}
	if alertsTotal != nil {
		alertsTotal.WithLabelValues(channel, result).Inc()
	}
	if result == ResultFailed && deliveryFailed != nil {
		deliveryFailed.WithLabelValues(channel).Inc()
	}
}

func AddEvicted(count int) {
	if count <= 0 {
		return
	}
	if evictedTotal != nil {
		evictedTotal.Add(float64(count))
	}
}

// HTTPRecorder adapts the API collectors to the request metrics middleware.
type HTTPRecorder struct{}

func (HTTPRecorder) Observe(method, code string, duration time.Duration) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, code).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method).Observe(duration.Seconds())
	}
}

// Exported label values.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"

	SkipBusy      = "busy"
	SkipQueueFull = "queue_full"
)
