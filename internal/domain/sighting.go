package domain

import (
	"slices"
	"time"
)

// Column names used by the sighting and trend tables.
const (
	ColCommonName       = "common_name"
	ColScientificName   = "scientific_name"
	ColSpeciesCode      = "species_code"
	ColSpecies          = "species"
	ColObservationCount = "observation_count"
	ColObservationDate  = "observation_date"
	ColStateCode        = "state_code"
	ColLatitude         = "latitude"
	ColLongitude        = "longitude"

	ColRegionCode      = "region_code"
	ColSeason          = "season"
	ColStartDate       = "start_date"
	ColEndDate         = "end_date"
	ColAbundanceMean   = "abundance_mean"
	ColTotalPopPercent = "total_pop_percent"
	ColAbundanceClass  = "abundance_class"
)

// Season sentinels.
const (
	SeasonYearRound = "year_round"
	SeasonUnmatched = "n/a"
)

// ColumnSet lists the columns present on a table, in file order.
type ColumnSet []string

// Has reports whether the named column is present.
func (c ColumnSet) Has(name string) bool {
	return slices.Contains(c, name)
}

// SpeciesNames holds the species identifiers a row may carry. Any of them can
// be empty.
type SpeciesNames struct {
	CommonName     string `json:"common_name,omitempty"`
	ScientificName string `json:"scientific_name,omitempty"`
	SpeciesCode    string `json:"species_code,omitempty"`
	Species        string `json:"species,omitempty"`
}

// SpeciesValue returns the identifier stored under key, or "" for NoSpeciesKey.
func (n SpeciesNames) SpeciesValue(key SpeciesKey) string {
	switch key {
	case KeyCommonName:
		return n.CommonName
	case KeyScientificName:
		return n.ScientificName
	case KeySpeciesCode:
		return n.SpeciesCode
	case KeySpecies:
		return n.Species
	default:
		return ""
	}
}

// Sighting is one EBD observation event.
type Sighting struct {
	SpeciesNames
	ObservationCount *int       `json:"observation_count,omitempty"`
	ObservationDate  *time.Time `json:"observation_date,omitempty"` // nil when unparsable
	RegionCode       string     `json:"state_code"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
}

// SightingSet is a sighting table with its column presence.
type SightingSet struct {
	Columns ColumnSet
	Rows    []Sighting
}

// TrendInterval is one Status & Trends regional row.
type TrendInterval struct {
	SpeciesNames
	RegionCode      string
	Season          string
	StartDate       *time.Time
	EndDate         *time.Time
	AbundanceMean   *float64
	TotalPopPercent *float64
}

// IsYearRound reports whether the row applies regardless of date.
func (t TrendInterval) IsYearRound() bool {
	return NormalizeCode(t.Season) == SeasonYearRound
}

// TrendSet is a trend table with its column presence.
//
// Row order is part of the contract: when several seasonal windows contain a
// sighting date the earliest row wins, and with no species key the first
// year-round row applies to the whole region. Reordering Rows changes the
// linkage result.
type TrendSet struct {
	Columns ColumnSet
	Rows    []TrendInterval
}
