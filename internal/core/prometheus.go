package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dockcore/pkg/domain"
)

// PrometheusMetricsRecorder fulfills MetricsRecorder with Prometheus
// histograms and counters registered on the supplied registerer.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers and returns a Prometheus-backed
// recorder. A nil registerer falls back to the default registry.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusMetricsRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dockcore",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Duration of dock service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dockcore",
			Subsystem: "service",
			Name:      "operation_results_total",
			Help:      "Service operation outcomes by status.",
		}, []string{"operation", "status"}),
	}
	reg.MustRegister(r.durations, r.results)
	return r
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}

// BoardCollector exports the live dock board and SLA counters as gauges:
// docks by occupancy state and SLA timers by axis and level. State is
// derived on scrape so the metrics never go stale.
type BoardCollector struct {
	service *Service

	docksDesc *prometheus.Desc
	alertDesc *prometheus.Desc
	slaDesc   *prometheus.Desc
	totalDesc *prometheus.Desc
}

// NewBoardCollector builds a collector reading through the given service.
func NewBoardCollector(service *Service) *BoardCollector {
	return &BoardCollector{
		service:   service,
		docksDesc: prometheus.NewDesc("dockcore_docks", "Docks by derived occupancy state.", []string{"state"}, nil),
		alertDesc: prometheus.NewDesc("dockcore_board_cutoff_alerts", "Held docks by board cutoff alert level.", []string{"level"}, nil),
		slaDesc:   prometheus.NewDesc("dockcore_sla_alerts", "Records with an active SLA timer, by axis and level.", []string{"axis", "level"}, nil),
		totalDesc: prometheus.NewDesc("dockcore_records", "Total records across all sides.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *BoardCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.docksDesc
	ch <- c.alertDesc
	ch <- c.slaDesc
	ch <- c.totalDesc
}

// Collect implements prometheus.Collector.
func (c *BoardCollector) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()
	board, err := c.service.DockBoard(ctx)
	if err == nil {
		counts := map[Occupancy]int{}
		alerts := map[AlertLevel]int{}
		for _, tile := range board {
			counts[tile.State]++
			if tile.CutoffAlert != LevelNone {
				alerts[tile.CutoffAlert]++
			}
		}
		for _, state := range []Occupancy{domain.DockFree, domain.DockReserved, domain.DockBusy} {
			ch <- prometheus.MustNewConstMetric(c.docksDesc, prometheus.GaugeValue, float64(counts[state]), string(state))
		}
		for _, level := range []AlertLevel{LevelWarn, LevelCrit} {
			ch <- prometheus.MustNewConstMetric(c.alertDesc, prometheus.GaugeValue, float64(alerts[level]), string(level))
		}
	}
	sum, err := c.service.Summary(ctx)
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.slaDesc, prometheus.GaugeValue, float64(sum.WaitWarn), "wait", string(LevelWarn))
	ch <- prometheus.MustNewConstMetric(c.slaDesc, prometheus.GaugeValue, float64(sum.WaitCrit), "wait", string(LevelCrit))
	ch <- prometheus.MustNewConstMetric(c.slaDesc, prometheus.GaugeValue, float64(sum.CutoffWarn), "cutoff", string(LevelWarn))
	ch <- prometheus.MustNewConstMetric(c.slaDesc, prometheus.GaugeValue, float64(sum.CutoffCrit), "cutoff", string(LevelCrit))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(sum.Total))
}
