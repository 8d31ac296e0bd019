package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ReactionsExecutedTotal counts reaction invocations by reactor and level.
	ReactionsExecutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactix_reactions_executed_total",
			Help: "Total number of reaction bodies invoked, by reactor name and level",
		},
		[]string{"reactor", "level"},
	)

	// DeadlinesMissedTotal counts reactions whose deadline handler fired.
	DeadlinesMissedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactix_deadlines_missed_total",
			Help: "Total number of reaction deadline handlers invoked",
		},
		[]string{"reactor"},
	)

	// TagProcessingDuration records the wall-clock time spent in ProcessTag.
	TagProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reactix_tag_processing_duration_seconds",
			Help:    "Time to process all reactions for one tag",
			Buckets: prometheus.DefBuckets,
		},
	)

	// EventQueueDepth tracks the number of distinct pending tags in the event queue.
	EventQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reactix_event_queue_depth",
			Help: "Number of distinct tags pending in the event queue, by enclave",
		},
		[]string{"enclave"},
	)

	// BarrierWaitDuration records time spent blocked on an upstream tag-release barrier.
	BarrierWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reactix_barrier_wait_duration_seconds",
			Help:    "Time a downstream enclave spent waiting on an upstream tag-release barrier",
			Buckets: prometheus.DefBuckets,
		},
	)

	// LevelMapBuildDuration records the time spent computing the level map during lowering.
	LevelMapBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "reactix_level_map_build_duration_seconds",
			Help: "Time to compute the reaction level map during builder lowering",
		},
	)

	// BuilderValidationFailuresTotal counts rejected builder calls by error kind.
	BuilderValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactix_builder_validation_failures_total",
			Help: "Total builder calls rejected, by BuilderError kind",
		},
		[]string{"kind"},
	)

	// EnclavesRunning tracks how many enclave schedulers are currently active.
	EnclavesRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reactix_enclaves_running",
			Help: "Number of enclave scheduler goroutines currently running",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ReactionsExecutedTotal,
		DeadlinesMissedTotal,
		TagProcessingDuration,
		EventQueueDepth,
		BarrierWaitDuration,
		LevelMapBuildDuration,
		BuilderValidationFailuresTotal,
		EnclavesRunning,
	)
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations and recording them to a histogram.
type Timer struct {
	start time.Time
}

// NewTimer creates and starts a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a labeled histogram vector.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
