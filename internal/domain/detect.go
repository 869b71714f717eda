package domain

import (
	"fmt"
	"strings"
	"time"
)

// timesliceLayouts are the date-time forms seen in timeslice ids: full
// RFC 3339 or a zone-less local form, which is taken as UTC.
var timesliceLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Detect scans the forecast timeline and returns the non-benign detections
// per (location, phenomenon). Every declared pair is present in the result,
// with an empty sequence when no alert-worthy condition was found, so
// downstream stages never special-case missing keys. Detections within a
// sequence keep timeslice order, which the squasher relies on.
func Detect(report *ParsedReport) (Detections, error) {
	result := make(Detections, len(report.Metadata.Locations))
	for locID := range report.Metadata.Locations {
		byPhenomenon := make(map[string][]Detection, len(report.Metadata.Phenomena))
		for phenID := range report.Metadata.Phenomena {
			byPhenomenon[phenID] = []Detection{}
		}
		result[locID] = byPhenomenon
	}

	benign := benignCriteria(report.Metadata.Criteria)

	for _, slice := range report.Forecast {
		at, err := parseTimesliceID(slice.ID)
		if err != nil {
			return nil, err
		}
		for phenID, entries := range slice.Entries {
			for _, entry := range entries {
				if benign[entry.CriterionID] {
					continue
				}
				byPhenomenon, ok := result[entry.LocationID]
				if !ok {
					continue
				}
				byPhenomenon[phenID] = append(byPhenomenon[phenID], Detection{
					Time:        at,
					CriterionID: entry.CriterionID,
					Text:        entry.Text,
				})
			}
		}
	}

	return result, nil
}

// benignCriteria returns the set of criterion ids whose color is "green",
// compared case-insensitively.
func benignCriteria(criteria map[string]Criterion) map[string]bool {
	benign := make(map[string]bool)
	for id, c := range criteria {
		if strings.EqualFold(c.Color, "green") {
			benign[id] = true
		}
	}
	return benign
}

func parseTimesliceID(id string) (time.Time, error) {
	for _, layout := range timesliceLayouts {
		if t, err := time.Parse(layout, id); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timeslice id %q is not a valid date-time", ErrMalformedReport, id)
}
