package domain

import "sync"

// AlertStatus classifies an alert against the last one seen for the same
// (location, phenomenon).
type AlertStatus int

const (
	// StatusNew marks an alert for a pair not seen before.
	StatusNew AlertStatus = iota
	// StatusUpdated marks an alert whose criterion or interval changed.
	StatusUpdated
	// StatusUnchanged marks an alert identical to the last seen one:
	// same criterion color and same start/end times.
	StatusUnchanged
)

func (s AlertStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusUpdated:
		return "updated"
	case StatusUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

type statusKey struct {
	location   string
	phenomenon string
}

type statusEntry struct {
	code  string
	start int64
	end   int64
}

// StatusTracker remembers the last alert seen per (location display name,
// phenomenon) and classifies incoming alerts against it. State is held in
// memory only: after a restart every alert is New again, which at worst
// re-delivers current warnings once. Safe for concurrent use.
type StatusTracker struct {
	mu   sync.Mutex
	seen map[statusKey]statusEntry
}

// NewStatusTracker returns an empty tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{seen: make(map[statusKey]statusEntry)}
}

// Classify returns the alert's status relative to the last seen alert for
// the same (location, phenomenon) and records it as the new last-seen
// state. Classifying the same alert twice therefore yields Unchanged the
// second time, which makes replayed alert sets idempotent to deliver.
func (t *StatusTracker) Classify(location string, a Alert) AlertStatus {
	key := statusKey{location: location, phenomenon: a.Phenomenon}
	entry := statusEntry{
		code:  a.Code,
		start: a.StartTime.Unix(),
		end:   a.EndTime.Unix(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.seen[key]
	t.seen[key] = entry

	switch {
	case !ok:
		return StatusNew
	case prev == entry:
		return StatusUnchanged
	default:
		return StatusUpdated
	}
}

// Forget drops the last-seen state for a (location, phenomenon) so the next
// classification yields New. Callers use it when delivery could not be
// attempted, so the alert is not later suppressed as unchanged.
func (t *StatusTracker) Forget(location, phenomenon string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, statusKey{location: location, phenomenon: phenomenon})
}
