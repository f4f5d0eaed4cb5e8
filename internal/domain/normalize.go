package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// codeRewrites collapses alternate region prefixes onto the EBD convention.
var codeRewrites = strings.NewReplacer("usa-", "us-")

// NormalizeCode canonicalizes a region code or season label: trimmed,
// lowercased, with "usa-" rewritten to "us-". Empty input yields "".
func NormalizeCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return codeRewrites.Replace(lower(s))
}

// NormalizeSpecies canonicalizes a species identifier for equality checks.
func NormalizeSpecies(s string) string {
	return lower(strings.Join(strings.Fields(s), " "))
}

// lower builds a fresh Caser per call; Casers are stateful and not safe for
// concurrent use.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// NormalizeSightings returns a copy of set with region codes canonicalized.
func NormalizeSightings(set SightingSet) SightingSet {
	rows := make([]Sighting, len(set.Rows))
	for i, s := range set.Rows {
		s.RegionCode = NormalizeCode(s.RegionCode)
		rows[i] = s
	}
	return SightingSet{Columns: set.Columns, Rows: rows}
}

// NormalizeTrends returns a copy of set with region codes and season labels
// canonicalized. Row order is preserved.
func NormalizeTrends(set TrendSet) TrendSet {
	rows := make([]TrendInterval, len(set.Rows))
	for i, t := range set.Rows {
		t.RegionCode = NormalizeCode(t.RegionCode)
		t.Season = NormalizeCode(t.Season)
		rows[i] = t
	}
	return TrendSet{Columns: set.Columns, Rows: rows}
}
