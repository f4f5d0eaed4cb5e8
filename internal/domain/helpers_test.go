package domain

import "time"

const (
	testRegion   = "us-md"
	testCardinal = "Northern Cardinal"
	testOsprey   = "Osprey"
)

func fp(v float64) *float64 { return &v }

func ip(v int) *int { return &v }

func date(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func sighting(common string, obs *time.Time) Sighting {
	return Sighting{
		SpeciesNames:    SpeciesNames{CommonName: common},
		ObservationDate: obs,
		RegionCode:      testRegion,
	}
}

func seasonalRow(season string, start, end *time.Time, abundance float64) TrendInterval {
	return TrendInterval{
		RegionCode:      testRegion,
		Season:          season,
		StartDate:       start,
		EndDate:         end,
		AbundanceMean:   fp(abundance),
		TotalPopPercent: fp(abundance / 100),
	}
}

func yearRoundRow(abundance float64) TrendInterval {
	return TrendInterval{
		RegionCode:      testRegion,
		Season:          SeasonYearRound,
		AbundanceMean:   fp(abundance),
		TotalPopPercent: fp(abundance / 100),
	}
}

func withSpecies(t TrendInterval, common string) TrendInterval {
	t.CommonName = common
	return t
}

func sightingSet(rows ...Sighting) SightingSet {
	return SightingSet{
		Columns: ColumnSet{ColCommonName, ColObservationDate, ColStateCode},
		Rows:    rows,
	}
}

func trendSet(withSpeciesColumn bool, rows ...TrendInterval) TrendSet {
	cols := ColumnSet{ColRegionCode, ColSeason, ColStartDate, ColEndDate, ColAbundanceMean, ColTotalPopPercent}
	if withSpeciesColumn {
		cols = append(cols, ColCommonName)
	}
	return TrendSet{Columns: cols, Rows: rows}
}
