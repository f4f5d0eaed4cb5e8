package domain

import (
	"math"
	"slices"
)

// Abundance class labels.
const (
	ClassLow  = "Low"
	ClassHigh = "High"
)

// ClassifiedSighting is an enriched sighting with its abundance class.
// AbundanceClass is "" when classification did not run.
type ClassifiedSighting struct {
	EnrichedSighting
	AbundanceClass string `json:"abundance_class,omitempty"`
}

// ClassifyAbundance labels each record Low when its abundance_mean is at or
// below the median of all non-nil values, and High otherwise.
//
// A nil abundance_mean never compares at or below the cutoff, so it is
// labelled High. Every record receives a label, so none are dropped.
func ClassifyAbundance(records []EnrichedSighting) []ClassifiedSighting {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if r.AbundanceMean != nil {
			values = append(values, *r.AbundanceMean)
		}
	}
	cutoff := Median(values)

	out := make([]ClassifiedSighting, len(records))
	for i, r := range records {
		label := ClassHigh
		if r.AbundanceMean != nil && *r.AbundanceMean <= cutoff {
			label = ClassLow
		}
		out[i] = ClassifiedSighting{EnrichedSighting: r, AbundanceClass: label}
	}
	return out
}

// Unclassified wraps records without assigning a class.
func Unclassified(records []EnrichedSighting) []ClassifiedSighting {
	out := make([]ClassifiedSighting, len(records))
	for i, r := range records {
		out[i] = ClassifiedSighting{EnrichedSighting: r}
	}
	return out
}

// Median returns the median of values, or NaN when values is empty.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Quantile returns the q-th quantile of values using linear interpolation
// between closest ranks. It returns NaN for an empty slice.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
