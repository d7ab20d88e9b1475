package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const _namespace = "mt5sync"

// ReconciledRecords counts per-record reconciliation outcomes.
var ReconciledRecords = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "reconcile",
		Name:      "records_total",
		Help:      "Reconciled records by kind and outcome",
	},
	[]string{"kind", "outcome"},
)

var DeletedPositions = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "reconcile",
		Name:      "deleted_open_positions_total",
		Help:      "Open positions removed because they disappeared remotely",
	},
)

var SweepDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: _namespace,
		Subsystem: "sync",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of a full sweep",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	},
	[]string{"job"},
)

var SweepFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "sync",
		Name:      "account_failures_total",
		Help:      "Per-account failures inside sweeps",
	},
	[]string{"job"},
)

var SkippedRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "sync",
		Name:      "skipped_runs_total",
		Help:      "Scheduled runs skipped because the previous run was still going",
	},
	[]string{"job"},
)

var RemoteConnected = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: _namespace,
		Subsystem: "remote",
		Name:      "connected",
		Help:      "1 when a manager session is established",
	},
)

var HTTPRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Handled API requests by route and status code",
	},
	[]string{"route", "code"},
)

func ObserveSweep(job string, start time.Time) {
	SweepDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

func SetConnected(ok bool) {
	if ok {
		RemoteConnected.Set(1)
		return
	}
	RemoteConnected.Set(0)
}
