package domain

import "errors"

// Pipeline error taxonomy. Every failure in the ingest and dispatch loops
// wraps one of these sentinels so callers can classify with errors.Is.
var (
	// ErrMalformedReport marks a structural decode failure: the event is
	// dropped, logged, and no alert set is published.
	ErrMalformedReport = errors.New("malformed report")

	// ErrDownloadFailed marks a failure resolving or fetching the report
	// file. The event is dropped; the broker's replay is the retry.
	ErrDownloadFailed = errors.New("report download failed")

	// ErrUnknownReference marks an id used during detection that is absent
	// from the metadata supplied for enrichment. The detector and enricher
	// run over the same ParsedReport, so this should not occur.
	ErrUnknownReference = errors.New("unknown metadata reference")

	// ErrDeliveryFailed marks a per-recipient delivery failure where the
	// recipient is unreachable or has blocked the bot. Triggers the
	// directory deactivation write; never aborts the batch.
	ErrDeliveryFailed = errors.New("delivery failed: recipient unreachable")

	// ErrDirectoryUnavailable marks an unreachable subscriber directory.
	// Delivery of the affected alert is abandoned for this cycle.
	ErrDirectoryUnavailable = errors.New("subscriber directory unavailable")
)
