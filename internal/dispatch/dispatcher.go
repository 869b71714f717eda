// Package dispatch consumes published alert sets and delivers them to
// interested subscribers.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
	"github.com/couchcryptid/weather-alert-pipeline/internal/observability"
)

// Consumer fetches the next alert set message from the distribution channel.
type Consumer interface {
	Fetch(ctx context.Context) (domain.ChannelMessage, error)
}

// Directory resolves interested subscribers and records deactivations.
type Directory interface {
	InterestedIn(ctx context.Context, region, color string) ([]string, error)
	Deactivate(ctx context.Context, chatID string) error
}

// Messenger delivers one formatted alert message to one recipient.
type Messenger interface {
	Send(ctx context.Context, chatID, text string) error
}

// Dispatcher consumes alert sets one at a time, classifies each alert
// against the last-seen state, and delivers new or updated alerts to the
// subscribers resolved from the directory. Delivery is best-effort per
// subscriber: a failure deactivates or skips that recipient and never
// aborts the rest of the batch. The channel is at-least-once; replayed
// alert sets classify as unchanged and are not re-delivered.
type Dispatcher struct {
	consumer  Consumer
	directory Directory
	messenger Messenger
	tracker   *domain.StatusTracker
	workers   int
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Dispatcher delivering with at most workers concurrent sends.
func New(consumer Consumer, directory Directory, messenger Messenger, workers int, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		consumer:  consumer,
		directory: directory,
		messenger: messenger,
		tracker:   domain.NewStatusTracker(),
		workers:   workers,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one alert set has been consumed.
func (d *Dispatcher) CheckReadiness(_ context.Context) error {
	if !d.ready.Load() {
		return errors.New("no alert set consumed yet")
	}
	return nil
}

// Run consumes alert sets until the context is cancelled. Fetch failures
// back off exponentially; processing failures are contained per alert set.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", "workers", d.workers)
	d.metrics.DispatchRunning.Set(1)
	defer d.metrics.DispatchRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping", "reason", ctx.Err())
			return nil
		default:
		}

		msg, err := d.consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.Error("fetch alert set failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		d.processMessage(ctx, msg)
		d.commit(ctx, msg)
	}
}

// processMessage delivers one consumed alert set. Undecodable messages are
// logged and dropped; re-reading them would fail the same way.
func (d *Dispatcher) processMessage(ctx context.Context, msg domain.ChannelMessage) {
	start := time.Now()

	var set domain.PublishedAlertSet
	if err := json.Unmarshal(msg.Value, &set); err != nil {
		d.logger.Warn("undecodable alert set, dropping",
			"error", err, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		return
	}

	d.metrics.AlertSetsConsumed.Inc()
	logger := d.logger.With("report", set.Report)

	delivered := 0
	for location, alerts := range set.Alerts {
		for _, alert := range alerts {
			status := d.tracker.Classify(location, alert)
			d.metrics.AlertsByStatus.WithLabelValues(status.String()).Inc()
			if status == domain.StatusUnchanged {
				continue
			}

			recipients, err := d.directory.InterestedIn(ctx, location, alert.Code)
			if err != nil {
				// Directory down: abandon this alert for the cycle. Forget
				// its status so the next report delivers it instead of
				// classifying it unchanged.
				d.tracker.Forget(location, alert.Phenomenon)
				d.metrics.DirectoryErrors.Inc()
				logger.Error("resolving subscribers failed",
					"location", location, "phenomenon", alert.Phenomenon, "error", err)
				continue
			}

			d.deliverAll(ctx, recipients, formatAlertMessage(location, alert))
			delivered += len(recipients)

			logger.Info("alert dispatched",
				"location", location,
				"phenomenon", alert.Phenomenon,
				"code", alert.Code,
				"status", status.String(),
				"recipients", len(recipients))
		}
	}

	d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	d.ready.Store(true)

	logger.Debug("alert set processed", "deliveries", delivered, "duration", time.Since(start))
}

// deliverAll sends one message to every recipient, at most d.workers
// concurrently. Deliveries are independent: each failure affects only its
// own recipient.
func (d *Dispatcher) deliverAll(ctx context.Context, recipients []string, text string) {
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup

	for _, chatID := range recipients {
		wg.Add(1)
		sem <- struct{}{}
		go func(chatID string) {
			defer wg.Done()
			defer func() { <-sem }()
			d.deliver(ctx, chatID, text)
		}(chatID)
	}

	wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, chatID, text string) {
	d.metrics.DeliveriesAttempted.Inc()

	err := d.messenger.Send(ctx, chatID, text)
	if err == nil {
		return
	}
	d.metrics.DeliveriesFailed.Inc()

	if !errors.Is(err, domain.ErrDeliveryFailed) {
		d.logger.Warn("transient delivery failure", "chat_id", chatID, "error", err)
		return
	}

	// Unreachable recipient: soft-delete so the directory stops resolving
	// them. Re-activation is the registration flow's concern.
	d.logger.Info("deactivating unreachable subscriber", "chat_id", chatID)
	if err := d.directory.Deactivate(ctx, chatID); err != nil {
		d.logger.Error("deactivation failed", "chat_id", chatID, "error", err)
		return
	}
	d.metrics.SubscribersDeactivated.Inc()
}

// commit acknowledges the message if the channel supports it.
func (d *Dispatcher) commit(ctx context.Context, msg domain.ChannelMessage) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		d.logger.Warn("commit failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
