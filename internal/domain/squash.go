package domain

// Squash compresses each non-empty detection sequence into one
// AlertInterval: start is the first detection's timestamp, end the last's,
// and criterion/text come from the last detection. Pairs with no detections
// are omitted.
//
// A sequence is treated as one continuous weather event even when the
// criterion changes inside it (say yellow escalating to orange); the
// interval then reports only the most recent criterion and text. Stricter
// segmentation on criterion change would split such runs, but the published
// report cadence makes the single-interval form the one subscribers expect.
func Squash(detections Detections) Squashed {
	result := make(Squashed)
	for locID, byPhenomenon := range detections {
		for phenID, seq := range byPhenomenon {
			if len(seq) == 0 {
				continue
			}
			first, last := seq[0], seq[len(seq)-1]
			if result[locID] == nil {
				result[locID] = make(map[string]AlertInterval)
			}
			result[locID][phenID] = AlertInterval{
				Start:       first.Time,
				End:         last.Time,
				CriterionID: last.CriterionID,
				Text:        last.Text,
			}
		}
	}
	return result
}
