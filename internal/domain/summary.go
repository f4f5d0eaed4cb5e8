package domain

import (
	"math"
	"slices"
)

// Summary is a descriptive breakdown of a linked record set.
type Summary struct {
	Total       int
	BySpecies   map[string]int
	BySeason    map[string]int
	ByMatchKind map[MatchKind]int
	ByClass     map[string]int
	Abundance   Stats
}

// Stats describes a numeric column over its non-nil values.
type Stats struct {
	Count  int
	Mean   float64
	Std    float64 // sample standard deviation; NaN below two values
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Summarize counts records per common name, season, match kind, and class,
// and describes abundance_mean.
func Summarize(records []ClassifiedSighting) Summary {
	s := Summary{
		Total:       len(records),
		BySpecies:   make(map[string]int),
		BySeason:    make(map[string]int),
		ByMatchKind: make(map[MatchKind]int),
		ByClass:     make(map[string]int),
	}
	values := make([]float64, 0, len(records))
	for _, r := range records {
		s.BySpecies[r.CommonName]++
		s.BySeason[r.Season]++
		s.ByMatchKind[r.Kind]++
		if r.AbundanceClass != "" {
			s.ByClass[r.AbundanceClass]++
		}
		if r.AbundanceMean != nil {
			values = append(values, *r.AbundanceMean)
		}
	}
	s.Abundance = Describe(values)
	return s
}

// Matched returns the number of records with any trend match.
func (s Summary) Matched() int {
	return s.Total - s.ByMatchKind[Unmatched]
}

// Describe computes count, mean, sample std, min, quartiles, and max.
// Fields other than Count are NaN for an empty input.
func Describe(values []float64) Stats {
	nan := math.NaN()
	st := Stats{Count: len(values), Mean: nan, Std: nan, Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan}
	if len(values) == 0 {
		return st
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	st.Mean = sum / float64(len(values))

	if len(values) > 1 {
		var sq float64
		for _, v := range values {
			d := v - st.Mean
			sq += d * d
		}
		st.Std = math.Sqrt(sq / float64(len(values)-1))
	}

	st.Min = slices.Min(values)
	st.Max = slices.Max(values)
	st.Q1 = Quantile(values, 0.25)
	st.Median = Quantile(values, 0.5)
	st.Q3 = Quantile(values, 0.75)
	return st
}

// SortedKeys returns the keys of m ordered by descending count, then name.
func SortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if m[a] != m[b] {
			return m[b] - m[a]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
	return keys
}
