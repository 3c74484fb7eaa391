package metrics

import "github.com/prometheus/client_golang/prometheus"

// DashboardMetrics exposes counters/histograms for the dashboard pipeline.
type DashboardMetrics struct {
	pipelineRuns    *prometheus.CounterVec
	pipelineLatency prometheus.Histogram
	datasetLoads    *prometheus.CounterVec
	droppedRows     prometheus.Counter
	datasetRecords  prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	exports         *prometheus.CounterVec
}

func NewDashboardMetrics(reg prometheus.Registerer) *DashboardMetrics {
	m := &DashboardMetrics{
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dashboard",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome (ok, empty)",
		}, []string{"outcome"}),
		pipelineLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "dashboard",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of filter and aggregation",
			Buckets:   prometheus.DefBuckets,
		}),
		datasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dataset",
			Name:      "loads_total",
			Help:      "Dataset loads by status",
		}, []string{"status"}),
		droppedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dataset",
			Name:      "dropped_rows_total",
			Help:      "Rows discarded at load time",
		}),
		datasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "dataset",
			Name:      "records",
			Help:      "Records in the cached dataset",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dashboard",
			Name:      "cache_lookups_total",
			Help:      "Dashboard result cache lookups by result (hit, miss)",
		}, []string{"result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dashboard",
			Name:      "exports_total",
			Help:      "Exports by format",
		}, []string{"format"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.pipelineRuns,
		m.pipelineLatency,
		m.datasetLoads,
		m.droppedRows,
		m.datasetRecords,
		m.cacheLookups,
		m.exports,
	)
	return m
}

func (m *DashboardMetrics) ObservePipeline(empty bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "ok"
	if empty {
		outcome = "empty"
	}
	m.pipelineRuns.WithLabelValues(outcome).Inc()
	m.pipelineLatency.Observe(seconds)
}

func (m *DashboardMetrics) ObserveLoad(records, dropped int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.datasetLoads.WithLabelValues("error").Inc()
		return
	}
	m.datasetLoads.WithLabelValues("ok").Inc()
	m.droppedRows.Add(float64(dropped))
	m.datasetRecords.Set(float64(records))
}

func (m *DashboardMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *DashboardMetrics) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// PipelineRuns returns the run counter for an outcome ("ok" or "empty").
func (m *DashboardMetrics) PipelineRuns(outcome string) prometheus.Counter {
	return m.pipelineRuns.WithLabelValues(outcome)
}

// DatasetLoads returns the load counter for a status ("ok" or "error").
func (m *DashboardMetrics) DatasetLoads(status string) prometheus.Counter {
	return m.datasetLoads.WithLabelValues(status)
}

func (m *DashboardMetrics) CacheLookups(result string) prometheus.Counter {
	return m.cacheLookups.WithLabelValues(result)
}

func (m *DashboardMetrics) Exports(format string) prometheus.Counter {
	return m.exports.WithLabelValues(format)
}
