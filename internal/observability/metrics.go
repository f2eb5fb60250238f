package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitjoin",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Number of pipeline runs by outcome.",
	}, []string{"status"})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitjoin",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full pipeline run.",
		Buckets:   prometheus.DefBuckets,
	})

	stageRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fitjoin",
		Subsystem: "pipeline",
		Name:      "stage_rows",
		Help:      "Rows produced by each stage in the most recent run.",
	}, []string{"stage"})

	diagnosticsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitjoin",
		Subsystem: "pipeline",
		Name:      "diagnostics_total",
		Help:      "Non-fatal data problems reported by runs.",
	}, []string{"source", "kind"})

	lastRunGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitjoin",
		Subsystem: "pipeline",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful run.",
	})
)

func init() {
	prometheus.MustRegister(runsCounter, runDuration, stageRows, diagnosticsCounter, lastRunGauge)
}

// RecordRun counts a finished run and its duration.
func RecordRun(started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	runsCounter.WithLabelValues(status).Inc()
	runDuration.Observe(time.Since(started).Seconds())
	if err == nil {
		lastRunGauge.Set(float64(time.Now().Unix()))
	}
}

// RecordStage sets the row count a stage produced.
func RecordStage(stage string, rows int) {
	stageRows.WithLabelValues(stage).Set(float64(rows))
}

// RecordDiagnostic counts one reported diagnostic.
func RecordDiagnostic(source, kind string) {
	diagnosticsCounter.WithLabelValues(source, kind).Inc()
}
