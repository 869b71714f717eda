package domain

import "time"

// Criterion is one severity classification from the report metadata.
// Color is the policy signal: "green" (any casing) means benign.
type Criterion struct {
	Color       string
	Description string
}

// Metadata holds the report's three dictionaries, keyed by internal id.
// Location and phenomenon values are display names.
type Metadata struct {
	Locations map[string]string
	Phenomena map[string]string
	Criteria  map[string]Criterion
}

// CriterionAssignment is one per-location entry inside a timeslice:
// the criterion assigned to a location, with localized description texts
// keyed by language id (e.g. "NL", "EN").
type CriterionAssignment struct {
	LocationID  string
	CriterionID string
	Text        map[string]string
}

// TimeSlice is one forecast sample point. The id is the sample's ISO-8601
// date-time, parsed by the detector. Entries maps phenomenon id to the
// per-location criterion assignments for that phenomenon.
type TimeSlice struct {
	ID      string
	Entries map[string][]CriterionAssignment
}

// ParsedReport is the typed form of one warning report. Forecast preserves
// source order, which is chronological by contract.
type ParsedReport struct {
	Metadata Metadata
	Forecast []TimeSlice
}

// Detection is a single non-benign (location, phenomenon, timeslice)
// observation.
type Detection struct {
	Time        time.Time
	CriterionID string
	Text        map[string]string
}

// Detections maps location id → phenomenon id → chronologically ordered
// detections. Every declared (location, phenomenon) pair is present, with
// an empty sequence when nothing was detected.
type Detections map[string]map[string][]Detection

// AlertInterval is a squashed run of detections for one (location,
// phenomenon) pair. Start and End are the first and last detection
// timestamps; CriterionID and Text come from the last detection.
type AlertInterval struct {
	Start       time.Time
	End         time.Time
	CriterionID string
	Text        map[string]string
}

// Squashed maps location id → phenomenon id → AlertInterval. Pairs with no
// detections are omitted.
type Squashed map[string]map[string]AlertInterval

// Alert is the display-ready form of an AlertInterval, resolved against the
// report metadata. This is the unit published downstream.
type Alert struct {
	Phenomenon string            `json:"phenomenon_name"`
	Code       string            `json:"code"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time"`
	Text       map[string]string `json:"text"`
}

// AlertSet maps location display name → alerts for that location. Every
// declared location appears, with an empty slice when it has no alerts.
type AlertSet map[string][]Alert
