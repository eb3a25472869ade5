package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdviceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishingadvice_advice_requests_total",
			Help: "Total advice requests by outcome",
		},
		[]string{"outcome"},
	)

	AdviceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fishingadvice_advice_latency_seconds",
			Help:    "End-to-end advice computation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ParamsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishingadvice_params_resolved_total",
			Help: "Prediction parameter resolutions by fallback tier",
		},
		[]string{"source"},
	)

	ReportSourceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishingadvice_report_source_calls_total",
			Help: "Report source reads by kind and status",
		},
		[]string{"kind", "status"},
	)

	ReportSourceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fishingadvice_report_source_latency_seconds",
			Help:    "Report source read latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	ObservationsAggregated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishingadvice_observations_aggregated_total",
			Help: "Observations produced by the report aggregator",
		},
		[]string{"kind"}, // general, personal, cross_venue, skipped
	)

	ProfileRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishingadvice_profile_rebuilds_total",
			Help: "Venue profile rebuild runs by status",
		},
		[]string{"status"},
	)
)
