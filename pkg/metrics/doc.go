/*
Package metrics provides Prometheus metrics collection and exposition for reactix.

It instruments the scheduler (reactions executed, tag processing duration, event
queue depth, barrier wait time) using the Prometheus client library. The builder
metrics (validation failures, level-map build time) are registered but nothing in
pkg/builder records them. Metrics are pure observers: nothing in pkg/scheduler
reads a metric back to make a decision.

Metrics are registered at package init via prometheus.MustRegister against the
default registry and exposed for scraping via Handler(), typically mounted at
/metrics by cmd/reactixctl.

# Timer

Timer is a small helper for the common "start now, observe duration to a histogram
later" pattern used throughout the scheduler's hot path:

	timer := metrics.NewTimer()
	processTag(tag, reactions)
	timer.ObserveDuration(metrics.TagProcessingDuration)
*/
package metrics
