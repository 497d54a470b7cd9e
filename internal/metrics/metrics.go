// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "naagrik"

var (
	// StoreComplaints is the number of complaints in the live set
	StoreComplaints = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_complaints",
		Help:      "Number of complaints held by the live store",
	})

	// StoreChanges counts applied changes by kind (replace, upsert, remove)
	StoreChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_changes_total",
		Help:      "Changes applied to the live store",
	}, []string{"kind"})

	// RecordsDropped counts malformed records rejected at the store boundary
	RecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_dropped_total",
		Help:      "Complaint records dropped because they failed validation",
	})

	// Subscribers is the number of live store subscriptions
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_subscribers",
		Help:      "Active live store subscriptions",
	})

	// Transitions counts status transitions by outcome
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Status transitions by target status and result",
	}, []string{"to", "result"})

	// EventPublishFailures counts lifecycle events that could not be delivered
	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publish_failures_total",
		Help:      "Lifecycle events that failed to publish",
	})

	// UpstreamFailures counts failed calls to external collaborators
	UpstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_failures_total",
		Help:      "Failed calls to external services",
	}, []string{"service"})

	// ClusterDuration observes hot zone computation time
	ClusterDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cluster_duration_seconds",
		Help:      "Time spent grouping complaints into hot zones",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	// Resyncs counts scheduled full reloads by result
	Resyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resyncs_total",
		Help:      "Scheduled full snapshot reloads",
	}, []string{"result"})
)
