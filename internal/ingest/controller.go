// Package ingest drives the report-processing side of the pipeline: one
// broker event in, one published alert set out.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
	"github.com/couchcryptid/weather-alert-pipeline/internal/observability"
)

// reportExtension filters broker events: the dataset also announces
// non-report files, which are dropped silently.
const reportExtension = ".xml"

// EventSource delivers file events from the notification broker.
type EventSource interface {
	Events() <-chan domain.FileEvent
}

// URLResolver exchanges a file's API URL for a temporary signed download URL.
type URLResolver interface {
	ResolveDownloadURL(ctx context.Context, fileURL string) (string, error)
}

// Downloader fetches a report body into memory.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Publisher puts one alert set on the distribution channel.
type Publisher interface {
	PublishAlertSet(ctx context.Context, set domain.PublishedAlertSet) error
}

// state tracks where a report cycle is; transitions are logged, and any
// failure returns the cycle to idle with nothing published.
type state int

const (
	stateIdle state = iota
	stateDownloading
	stateParsing
	stateAnalyzing
	statePublishing
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateDownloading:
		return "downloading"
	case stateParsing:
		return "parsing"
	case stateAnalyzing:
		return "analyzing"
	case statePublishing:
		return "publishing"
	default:
		return "unknown"
	}
}

// Controller processes broker events one at a time: download the announced
// report, run the detection pipeline over it, publish the enriched alert
// set. Every failure is contained to its event; the broker's at-least-once
// redelivery is the retry mechanism, so the controller never retries
// internally.
type Controller struct {
	source     EventSource
	resolver   URLResolver
	downloader Downloader
	publisher  Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// New creates a Controller with the given collaborators.
func New(source EventSource, resolver URLResolver, downloader Downloader, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		source:     source,
		resolver:   resolver,
		downloader: downloader,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once at least one report has been fully
// processed and published.
func (c *Controller) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("no report processed yet")
	}
	return nil
}

// Run consumes broker events until the context is cancelled. Events are
// processed to completion one at a time; a failed cycle is logged and the
// loop moves on.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("ingestion controller started")
	c.metrics.IngestRunning.Set(1)
	defer c.metrics.IngestRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("ingestion controller stopping", "reason", ctx.Err())
			return nil
		case event := <-c.source.Events():
			c.metrics.EventsReceived.Inc()
			if err := c.processEvent(ctx, event); err != nil {
				c.logger.Error("report cycle failed",
					"filename", event.Filename, "error", err)
			}
		}
	}
}

// processEvent runs one report cycle through the state machine.
func (c *Controller) processEvent(ctx context.Context, event domain.FileEvent) error {
	if !strings.HasSuffix(event.Filename, reportExtension) {
		c.metrics.EventsSkipped.Inc()
		c.logger.Debug("skipping non-report event", "filename", event.Filename)
		return nil
	}

	start := time.Now()
	logger := c.logger.With("filename", event.Filename)

	logger.Debug("state transition", "state", stateDownloading)
	signedURL, err := c.resolver.ResolveDownloadURL(ctx, event.URL)
	if err != nil {
		c.metrics.DownloadErrors.Inc()
		return err
	}
	body, err := c.downloader.Download(ctx, signedURL)
	if err != nil {
		c.metrics.DownloadErrors.Inc()
		return err
	}

	logger.Debug("state transition", "state", stateParsing)
	report, err := domain.ParseReport(body)
	if err != nil {
		c.metrics.ParseErrors.Inc()
		return err
	}

	logger.Debug("state transition", "state", stateAnalyzing)
	detections, err := domain.Detect(report)
	if err != nil {
		c.metrics.ParseErrors.Inc()
		return err
	}
	alerts, err := domain.Enrich(report.Metadata, domain.Squash(detections))
	if err != nil {
		// Detector and enricher disagreeing on one ParsedReport is an
		// internal consistency violation, not bad input.
		logger.Error("internal consistency violation during enrichment", "error", err)
		return err
	}

	logger.Debug("state transition", "state", statePublishing)
	set := domain.PublishedAlertSet{
		Report:      event.Filename,
		PublishedAt: domain.Now(),
		Alerts:      alerts,
	}
	if err := c.publisher.PublishAlertSet(ctx, set); err != nil {
		// The event is lost for this cycle; the broker's durable session
		// replays it after a reconnect if the disconnect caused the failure.
		c.metrics.PublishErrors.Inc()
		return err
	}

	c.metrics.ReportsProcessed.Inc()
	c.metrics.AlertSetsPublished.Inc()
	c.metrics.ReportDuration.Observe(time.Since(start).Seconds())
	c.ready.Store(true)

	logger.Info("alert set published",
		"locations", len(alerts),
		"alerts", countAlerts(alerts),
		"duration", time.Since(start))
	return nil
}

func countAlerts(set domain.AlertSet) int {
	n := 0
	for _, alerts := range set {
		n += len(alerts)
	}
	return n
}
