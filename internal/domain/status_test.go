package domain_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
	"github.com/stretchr/testify/assert"
)

func statusAlert(code string, start, end time.Time) domain.Alert {
	return domain.Alert{
		Phenomenon: "Windstoten",
		Code:       code,
		StartTime:  start,
		EndTime:    end,
	}
}

func TestStatusTracker_Classify(t *testing.T) {
	tracker := domain.NewStatusTracker()
	start := time.Date(2024, 12, 29, 10, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	first := statusAlert("yellow", start, end)
	assert.Equal(t, domain.StatusNew, tracker.Classify("Zuid-Holland", first))

	// Same criterion and interval: unchanged.
	assert.Equal(t, domain.StatusUnchanged, tracker.Classify("Zuid-Holland", first))

	// Escalated criterion: updated.
	escalated := statusAlert("red", start, end)
	assert.Equal(t, domain.StatusUpdated, tracker.Classify("Zuid-Holland", escalated))

	// Extended interval: updated.
	extended := statusAlert("red", start, end.Add(2*time.Hour))
	assert.Equal(t, domain.StatusUpdated, tracker.Classify("Zuid-Holland", extended))

	// Replay of the latest state: unchanged again.
	assert.Equal(t, domain.StatusUnchanged, tracker.Classify("Zuid-Holland", extended))
}

func TestStatusTracker_KeyedByLocationAndPhenomenon(t *testing.T) {
	tracker := domain.NewStatusTracker()
	start := time.Date(2024, 12, 29, 10, 0, 0, 0, time.UTC)

	alert := statusAlert("yellow", start, start)
	assert.Equal(t, domain.StatusNew, tracker.Classify("Zuid-Holland", alert))
	assert.Equal(t, domain.StatusNew, tracker.Classify("Noord-Holland", alert))

	other := alert
	other.Phenomenon = "Gladheid"
	assert.Equal(t, domain.StatusNew, tracker.Classify("Zuid-Holland", other))
}

func TestStatusTracker_Forget(t *testing.T) {
	tracker := domain.NewStatusTracker()
	start := time.Date(2024, 12, 29, 10, 0, 0, 0, time.UTC)

	alert := statusAlert("red", start, start.Add(4*time.Hour))
	assert.Equal(t, domain.StatusNew, tracker.Classify("Zuid-Holland", alert))

	tracker.Forget("Zuid-Holland", alert.Phenomenon)
	assert.Equal(t, domain.StatusNew, tracker.Classify("Zuid-Holland", alert))

	// Forgetting one pair leaves others untouched.
	tracker.Forget("Noord-Holland", alert.Phenomenon)
	assert.Equal(t, domain.StatusUnchanged, tracker.Classify("Zuid-Holland", alert))
}

func TestAlertStatus_String(t *testing.T) {
	assert.Equal(t, "new", domain.StatusNew.String())
	assert.Equal(t, "updated", domain.StatusUpdated.String())
	assert.Equal(t, "unchanged", domain.StatusUnchanged.String())
}
