// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	transfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_transfers_total",
			Help: "Item transfers by outcome (sent/relayed/uploaded/skipped/failed).",
		},
		[]string{"outcome"},
	)

	transferBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_transfer_bytes_total",
			Help: "Bytes moved through the pipeline per phase (download/upload).",
		},
		[]string{"phase"},
	)

	transferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_transfer_duration_seconds",
			Help:    "Wall-clock duration of one item transfer by strategy.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		},
		[]string{"strategy"},
	)

	jobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_jobs_active",
			Help: "Jobs currently registered.",
		},
	)

	clientResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_client_resolutions_total",
			Help: "Client pool resolutions by capability and result (hit/created/unavailable).",
		},
		[]string{"capability", "result"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			transfersTotal, transferBytes, transferDuration,
			jobsActive, clientResolutions,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncTransfer(outcome string) {
	transfersTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddTransferBytes(phase string, n int64) {
	if n > 0 {
		transferBytes.WithLabelValues(norm(phase)).Add(float64(n))
	}
}

func ObserveTransfer(strategy string, seconds float64) {
	transferDuration.WithLabelValues(norm(strategy)).Observe(seconds)
}

func JobStarted()  { jobsActive.Inc() }
func JobFinished() { jobsActive.Dec() }

func IncResolution(capability, result string) {
	clientResolutions.WithLabelValues(norm(capability), norm(result)).Inc()
}
