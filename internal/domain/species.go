package domain

// SpeciesKey names the column used to scope matching to one species.
type SpeciesKey string

// Species keys in resolution order. NoSpeciesKey means the two tables share
// no species column.
const (
	NoSpeciesKey      SpeciesKey = ""
	KeyCommonName     SpeciesKey = ColCommonName
	KeyScientificName SpeciesKey = ColScientificName
	KeySpeciesCode    SpeciesKey = ColSpeciesCode
	KeySpecies        SpeciesKey = ColSpecies
)

var speciesKeyPreference = []SpeciesKey{
	KeyCommonName,
	KeyScientificName,
	KeySpeciesCode,
	KeySpecies,
}

// ResolveSpeciesKey returns the first preferred species column present in
// both tables, or NoSpeciesKey.
func ResolveSpeciesKey(sightings SightingSet, trends TrendSet) SpeciesKey {
	for _, key := range speciesKeyPreference {
		if sightings.Columns.Has(string(key)) && trends.Columns.Has(string(key)) {
			return key
		}
	}
	return NoSpeciesKey
}
