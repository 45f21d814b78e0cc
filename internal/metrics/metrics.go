package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Probe metrics
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgtest_probes_total",
			Help: "Total number of connection probes by result",
		},
		[]string{"result"}, // "success", "failure", "unreachable"
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgtest_probe_duration_seconds",
			Help:    "Duration of probe phases in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"}, // "connect", "query", "total"
	)

	Up = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgtest_up",
			Help: "Whether the last probe succeeded (1=up, 0=down)",
		},
	)

	// Server-side gauges from the last successful probe
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgtest_active_connections",
			Help: "Active connections reported by pg_stat_activity",
		},
	)

	MaxConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgtest_max_connections",
			Help: "Server max_connections setting",
		},
	)

	DatabaseSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgtest_database_size_bytes",
			Help: "Size of the probed database in bytes",
		},
	)

	// Health endpoint metrics
	HealthCheckRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgtest_health_check_requests_total",
			Help: "Total number of health check requests",
		},
		[]string{"endpoint", "status"},
	)

	// General application metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgtest_uptime_seconds",
			Help: "Uptime of the pgtest process in seconds",
		},
	)
)
