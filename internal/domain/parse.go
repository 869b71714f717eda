package domain

import (
	"encoding/xml"
	"fmt"
)

// Wire types for the KNMI warning report XML. Repeated elements decode into
// slices whether the source has one entry or many.

type xmlReport struct {
	XMLName    xml.Name           `xml:"report"`
	Phenomena  []xmlPhenomenonDef `xml:"metadata>report_structure>report_phenomena>report_phenomenon"`
	Criteria   []xmlCriterionDef  `xml:"metadata>report_structure>report_criteria>report_criterion"`
	Locations  []xmlLocationDef   `xml:"metadata>report_structure>report_locations>report_location"`
	TimeSlices []xmlTimeSlice     `xml:"data>cube>timeslice"`
}

type xmlPhenomenonDef struct {
	ID   string `xml:"phenomenon_id"`
	Name string `xml:"report_phenomenon_descr>text>text_header"`
}

type xmlCriterionDef struct {
	ID          string `xml:"criterion_id"`
	Color       string `xml:"color_id"`
	Description string `xml:"criterion_descr"`
}

type xmlLocationDef struct {
	ID   string `xml:"location_id"`
	Name string `xml:"location_descr>text>text_header"`
}

type xmlTimeSlice struct {
	ID        string          `xml:"timeslice_id"`
	Phenomena []xmlPhenomenon `xml:"phenomenon"`
}

type xmlPhenomenon struct {
	ID      string             `xml:"phenomenon_id"`
	Entries []xmlLocationEntry `xml:"location"`
}

type xmlLocationEntry struct {
	LocationID  string    `xml:"location_id"`
	CriterionID string    `xml:"criterion_id"`
	Texts       []xmlText `xml:"text"`
}

type xmlText struct {
	LanguageID string `xml:"text_language_id"`
	Data       string `xml:"text_data"`
}

// ParseReport decodes one raw warning report into a ParsedReport.
// It returns an error wrapping ErrMalformedReport when the document does
// not decode, a required structural block is absent, the location set is
// empty, or a metadata dictionary contains a duplicate identifier.
func ParseReport(raw []byte) (*ParsedReport, error) {
	var doc xmlReport
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformedReport, err)
	}

	md, err := parseMetadata(doc)
	if err != nil {
		return nil, err
	}

	if len(doc.TimeSlices) == 0 {
		return nil, fmt.Errorf("%w: missing forecast block", ErrMalformedReport)
	}

	forecast := make([]TimeSlice, 0, len(doc.TimeSlices))
	for _, ts := range doc.TimeSlices {
		slice := TimeSlice{
			ID:      ts.ID,
			Entries: make(map[string][]CriterionAssignment, len(ts.Phenomena)),
		}
		for _, p := range ts.Phenomena {
			entries := make([]CriterionAssignment, 0, len(p.Entries))
			for _, e := range p.Entries {
				text := make(map[string]string, len(e.Texts))
				for _, t := range e.Texts {
					text[t.LanguageID] = t.Data
				}
				entries = append(entries, CriterionAssignment{
					LocationID:  e.LocationID,
					CriterionID: e.CriterionID,
					Text:        text,
				})
			}
			slice.Entries[p.ID] = entries
		}
		forecast = append(forecast, slice)
	}

	return &ParsedReport{Metadata: md, Forecast: forecast}, nil
}

func parseMetadata(doc xmlReport) (Metadata, error) {
	if len(doc.Phenomena) == 0 || len(doc.Criteria) == 0 {
		return Metadata{}, fmt.Errorf("%w: missing metadata block", ErrMalformedReport)
	}
	if len(doc.Locations) == 0 {
		return Metadata{}, fmt.Errorf("%w: empty location set", ErrMalformedReport)
	}

	md := Metadata{
		Locations: make(map[string]string, len(doc.Locations)),
		Phenomena: make(map[string]string, len(doc.Phenomena)),
		Criteria:  make(map[string]Criterion, len(doc.Criteria)),
	}

	for _, l := range doc.Locations {
		if _, ok := md.Locations[l.ID]; ok {
			return Metadata{}, fmt.Errorf("%w: duplicate location id %q", ErrMalformedReport, l.ID)
		}
		md.Locations[l.ID] = l.Name
	}
	for _, p := range doc.Phenomena {
		if _, ok := md.Phenomena[p.ID]; ok {
			return Metadata{}, fmt.Errorf("%w: duplicate phenomenon id %q", ErrMalformedReport, p.ID)
		}
		md.Phenomena[p.ID] = p.Name
	}
	for _, c := range doc.Criteria {
		if _, ok := md.Criteria[c.ID]; ok {
			return Metadata{}, fmt.Errorf("%w: duplicate criterion id %q", ErrMalformedReport, c.ID)
		}
		md.Criteria[c.ID] = Criterion{Color: c.Color, Description: c.Description}
	}

	return md, nil
}
