package domain

// FilterRegion keeps the sightings and trend rows whose normalized region
// code equals region. The sighting set must carry the state_code column;
// a trend set without region_code contributes no rows.
func FilterRegion(sightings SightingSet, trends TrendSet, region string) (SightingSet, TrendSet, error) {
	if !sightings.Columns.Has(ColStateCode) {
		return SightingSet{}, TrendSet{}, &MissingFieldError{Field: ColStateCode}
	}
	target := NormalizeCode(region)

	outS := SightingSet{Columns: sightings.Columns, Rows: make([]Sighting, 0, len(sightings.Rows))}
	for _, s := range sightings.Rows {
		if NormalizeCode(s.RegionCode) == target {
			outS.Rows = append(outS.Rows, s)
		}
	}

	outT := TrendSet{Columns: trends.Columns}
	if !trends.Columns.Has(ColRegionCode) {
		return outS, outT, nil
	}
	for _, t := range trends.Rows {
		if NormalizeCode(t.RegionCode) == target {
			outT.Rows = append(outT.Rows, t)
		}
	}
	return outS, outT, nil
}
