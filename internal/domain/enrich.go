package domain

import (
	"fmt"
	"sort"
)

// Enrich resolves the squashed intervals to display-ready alerts keyed by
// location display name. Every declared location appears in the result,
// defaulting to an empty slice, so consumers can range over all regions
// without checking for missing keys.
//
// Returns an error wrapping ErrUnknownReference when an interval references
// a location, phenomenon, or criterion id absent from the metadata. The
// detector and enricher run over the same ParsedReport, so hitting this is
// an internal consistency violation, not a data problem.
func Enrich(md Metadata, squashed Squashed) (AlertSet, error) {
	result := make(AlertSet, len(md.Locations))
	for _, name := range md.Locations {
		result[name] = []Alert{}
	}

	for locID, byPhenomenon := range squashed {
		locName, ok := md.Locations[locID]
		if !ok {
			return nil, fmt.Errorf("%w: location %q", ErrUnknownReference, locID)
		}
		for phenID, interval := range byPhenomenon {
			phenName, ok := md.Phenomena[phenID]
			if !ok {
				return nil, fmt.Errorf("%w: phenomenon %q", ErrUnknownReference, phenID)
			}
			criterion, ok := md.Criteria[interval.CriterionID]
			if !ok {
				return nil, fmt.Errorf("%w: criterion %q", ErrUnknownReference, interval.CriterionID)
			}
			result[locName] = append(result[locName], Alert{
				Phenomenon: phenName,
				Code:       criterion.Color,
				StartTime:  interval.Start,
				EndTime:    interval.End,
				Text:       interval.Text,
			})
		}
	}

	// Map iteration order is random; sort so the same report always
	// enriches to the same output.
	for _, alerts := range result {
		sort.Slice(alerts, func(i, j int) bool {
			return alerts[i].Phenomenon < alerts[j].Phenomenon
		})
	}

	return result, nil
}
