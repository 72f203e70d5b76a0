// Package metrics exposes the engine's Prometheus instrumentation. The
// collectors are registered in init() and served by the HTTP handler the
// run command starts at /metrics when metrics are enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MirrorOpens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "copytrader_mirror_opens_total",
			Help: "Destination open orders submitted",
		},
	)

	MirrorCloses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "copytrader_mirror_closes_total",
			Help: "Destination close orders submitted",
		},
	)

	GateDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copytrader_gate_denials_total",
			Help: "Actions blocked by the constraint gate",
		},
		[]string{"code", "action"},
	)

	TranslateFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copytrader_translate_failures_total",
			Help: "Translations abandoned for missing prices or quotes",
		},
		[]string{"effect"},
	)

	SubmitFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copytrader_submit_failures_total",
			Help: "Order submissions rejected by the destination",
		},
		[]string{"effect"},
	)

	SnapshotErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "copytrader_snapshot_errors_total",
			Help: "Source position snapshots that could not be fetched",
		},
	)

	TrackedPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "copytrader_tracked_positions",
			Help: "Mirror records currently held in the lifecycle store",
		},
	)

	DayTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "copytrader_day_trades_used",
			Help: "Day trades counted in the rolling regulatory window",
		},
	)
)

func init() {
	prometheus.MustRegister(MirrorOpens, MirrorCloses)
	prometheus.MustRegister(GateDenials, TranslateFailures, SubmitFailures)
	prometheus.MustRegister(SnapshotErrors, TrackedPositions, DayTrades)
}

// Handler returns the /metrics handler in Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
