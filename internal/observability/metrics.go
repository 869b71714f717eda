package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// alert pipeline. The ingest and dispatch services each register the full
// set; unused series simply stay at zero.
type Metrics struct {
	// Ingestion.
	EventsReceived    prometheus.Counter
	EventsSkipped     prometheus.Counter
	ReportsProcessed  prometheus.Counter
	DownloadErrors    prometheus.Counter
	ParseErrors       prometheus.Counter
	PublishErrors     prometheus.Counter
	AlertSetsPublished prometheus.Counter
	IngestRunning     prometheus.Gauge
	ReportDuration    prometheus.Histogram

	// Dispatch.
	AlertSetsConsumed      prometheus.Counter
	AlertsByStatus         *prometheus.CounterVec // labels: status={new,updated,unchanged}
	DeliveriesAttempted    prometheus.Counter
	DeliveriesFailed       prometheus.Counter
	SubscribersDeactivated prometheus.Counter
	DirectoryErrors        prometheus.Counter
	DispatchRunning        prometheus.Gauge
	DispatchDuration       prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsReceived,
		m.EventsSkipped,
		m.ReportsProcessed,
		m.DownloadErrors,
		m.ParseErrors,
		m.PublishErrors,
		m.AlertSetsPublished,
		m.IngestRunning,
		m.ReportDuration,
		m.AlertSetsConsumed,
		m.AlertsByStatus,
		m.DeliveriesAttempted,
		m.DeliveriesFailed,
		m.SubscribersDeactivated,
		m.DirectoryErrors,
		m.DispatchRunning,
		m.DispatchDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "broker_events_received_total",
			Help:      "Total file events received from the notification broker.",
		}),
		EventsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "broker_events_skipped_total",
			Help:      "Events dropped because the filename did not match the report extension.",
		}),
		ReportsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "reports_processed_total",
			Help:      "Reports carried through the full parse-detect-squash-enrich cycle.",
		}),
		DownloadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "download_errors_total",
			Help:      "Failures resolving or fetching a report file.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "parse_errors_total",
			Help:      "Reports rejected as structurally malformed.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "publish_errors_total",
			Help:      "Failures publishing an alert set to the distribution channel.",
		}),
		AlertSetsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "alert_sets_published_total",
			Help:      "Alert sets published to the distribution channel.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_alerts",
			Name:      "ingest_running",
			Help:      "1 when the ingestion controller is active, 0 when shut down.",
		}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_alerts",
			Name:      "report_processing_duration_seconds",
			Help:      "Duration of one complete report cycle, download through publish.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		AlertSetsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "alert_sets_consumed_total",
			Help:      "Alert sets consumed from the distribution channel.",
		}),
		AlertsByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "alerts_total",
			Help:      "Alerts classified by status against the last-seen state.",
		}, []string{"status"}),
		DeliveriesAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "deliveries_attempted_total",
			Help:      "Per-subscriber delivery attempts.",
		}),
		DeliveriesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "deliveries_failed_total",
			Help:      "Per-subscriber delivery failures of any kind.",
		}),
		SubscribersDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "subscribers_deactivated_total",
			Help:      "Unreachable subscribers soft-deleted in the directory.",
		}),
		DirectoryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "directory_errors_total",
			Help:      "Subscriber directory requests that failed.",
		}),
		DispatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_alerts",
			Name:      "dispatch_running",
			Help:      "1 when the dispatcher is active, 0 when shut down.",
		}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_alerts",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of delivering one consumed alert set.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
