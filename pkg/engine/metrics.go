package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sheet error stages.
const (
	stageOpen  = "open"
	stageRead  = "read"
	stageWrite = "write"
)

var (
	RowsRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabmap_engine_rows_read_total",
		Help: "The total number of source rows read",
	}, []string{"sheet"})

	RowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabmap_engine_rows_written_total",
		Help: "The total number of rows written to an output workbook",
	}, []string{"sheet"})

	RowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabmap_engine_rows_dropped_total",
		Help: "The total number of rows dropped because every value was blank",
	}, []string{"sheet"})

	SheetErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabmap_engine_sheet_errors_total",
		Help: "The total number of sheets degraded by an I/O failure",
	}, []string{"sheet", "stage"})

	ValueFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabmap_engine_value_fallbacks_total",
		Help: "The total number of per-value failures absorbed by the pipeline",
	}, []string{"stage"})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tabmap_engine_active_runs",
		Help: "The number of previews and materializations in progress",
	})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tabmap_engine_run_duration_seconds",
		Help:    "Time taken by a preview or materialization",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)
