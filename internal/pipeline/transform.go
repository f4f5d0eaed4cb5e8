package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/species-trend-etl/internal/domain"
)

// Linkage is the result of linking one species' sightings with its trends.
type Linkage struct {
	Region     string
	SpeciesKey domain.SpeciesKey
	Classified bool
	Columns    domain.ColumnSet // sighting columns present on input
	Records    []domain.ClassifiedSighting
	Summary    domain.Summary
}

// Linker implements Transformer using the domain linkage functions.
type Linker struct {
	region   string
	classify bool
	matcher  *domain.Matcher
	logger   *slog.Logger
}

// NewLinker creates a Linker for one target region. workers > 1 parallelizes
// the seasonal pass.
func NewLinker(region string, classify bool, workers int, logger *slog.Logger) *Linker {
	return &Linker{
		region:   domain.NormalizeCode(region),
		classify: classify,
		matcher:  domain.NewMatcher(domain.WithWorkers(workers)),
		logger:   logger,
	}
}

// Transform normalizes, filters, and matches the two tables, then optionally
// classifies abundance. Only a missing state_code column is an error.
func (l *Linker) Transform(_ context.Context, sightings domain.SightingSet, trends domain.TrendSet) (Linkage, error) {
	s, t, err := domain.FilterRegion(
		domain.NormalizeSightings(sightings),
		domain.NormalizeTrends(trends),
		l.region,
	)
	if err != nil {
		return Linkage{}, err
	}

	key := domain.ResolveSpeciesKey(s, t)
	l.logger.Debug("linkage inputs",
		"region", l.region,
		"sightings", len(s.Rows),
		"trend_rows", len(t.Rows),
		"species_key", string(key),
	)

	enriched := l.matcher.Match(s, t, key)

	var records []domain.ClassifiedSighting
	if l.classify {
		records = domain.ClassifyAbundance(enriched)
	} else {
		records = domain.Unclassified(enriched)
	}

	return Linkage{
		Region:     l.region,
		SpeciesKey: key,
		Classified: l.classify,
		Columns:    sightings.Columns,
		Records:    records,
		Summary:    domain.Summarize(records),
	}, nil
}
