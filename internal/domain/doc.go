// Package domain models the KNMI 48-hour severe-weather warning report and
// the alert pipeline that runs over it.
//
// # Data Source
//
// Reports come from the KNMI Data Platform dataset
// waarschuwingen_nederland_48h: one XML document published every few hours
// describing forecast conditions for the Dutch provinces across a 48-hour
// horizon, sampled every 2 hours. File creation events are announced on the
// platform's notification broker; the ingest service downloads each new
// report via a temporary signed URL.
//
// # Report Structure
//
// The XML carries two parts:
//
//	<report>
//	  <metadata><report_structure>   dictionaries of locations, phenomena
//	                                 and criteria, keyed by internal ids
//	  <data><cube><timeslice>        one element per forecast sample point,
//	                                 in chronological source order
//
// Each timeslice assigns, per phenomenon and per location, a criterion id
// plus localized description texts. Criteria carry a color tag; "green"
// (compared case-insensitively) marks benign conditions and is the sole
// signal that no alert is warranted.
//
// # Pipeline
//
// The alert pipeline is four pure stages over one parsed report:
//
//	ParseReport  raw XML → ParsedReport (validated structure)
//	Detect       timeline scan → per (location, phenomenon) Detections
//	Squash       consecutive detections → one AlertInterval per pair
//	Enrich       ids → display names, producing the published AlertSet
//
// Timeslice order is chronological by contract with the source; the
// pipeline preserves it and never re-sorts. Each report cycle owns its data
// exclusively, so the stages share no mutable state and running them twice
// on the same ParsedReport yields identical output.
package domain
