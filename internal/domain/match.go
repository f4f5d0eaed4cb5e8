package domain

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MatchKind records how a sighting obtained its trend statistics.
type MatchKind int

const (
	// Unmatched: no applicable trend row; statistics are nil, season "n/a".
	Unmatched MatchKind = iota
	// YearRoundGlobal: no species key, the first year-round row covers the region.
	YearRoundGlobal
	// YearRoundBySpecies: a year-round row for the sighting's species.
	YearRoundBySpecies
	// SeasonalMatch: the first seasonal window containing the sighting date.
	SeasonalMatch
)

// MatchKinds lists every kind in declaration order.
var MatchKinds = []MatchKind{Unmatched, YearRoundGlobal, YearRoundBySpecies, SeasonalMatch}

func (k MatchKind) String() string {
	switch k {
	case Unmatched:
		return "unmatched"
	case YearRoundGlobal:
		return "year_round_global"
	case YearRoundBySpecies:
		return "year_round_by_species"
	case SeasonalMatch:
		return "seasonal"
	default:
		return fmt.Sprintf("match_kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k MatchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *MatchKind) UnmarshalText(b []byte) error {
	for _, kind := range MatchKinds {
		if kind.String() == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown match kind %q", b)
}

// Enrichment is the trend data attached to a sighting.
type Enrichment struct {
	Kind            MatchKind `json:"match_kind"`
	AbundanceMean   *float64  `json:"abundance_mean"`
	TotalPopPercent *float64  `json:"total_pop_percent"`
	Season          string    `json:"season"`
	// TrendRow is the index of the winning row in the filtered TrendSet, or -1.
	TrendRow int `json:"trend_row"`
}

// UnmatchedEnrichment is the default state before any trend row applies.
func UnmatchedEnrichment() Enrichment {
	return Enrichment{Kind: Unmatched, Season: SeasonUnmatched, TrendRow: -1}
}

func enrichmentFrom(kind MatchKind, row int, t TrendInterval) Enrichment {
	season := NormalizeCode(t.Season)
	if season == "" {
		season = SeasonUnmatched
	}
	return Enrichment{
		Kind:            kind,
		AbundanceMean:   t.AbundanceMean,
		TotalPopPercent: t.TotalPopPercent,
		Season:          season,
		TrendRow:        row,
	}
}

// EnrichedSighting is a sighting with its trend enrichment.
type EnrichedSighting struct {
	Sighting
	Enrichment
}

// Matcher attaches trend statistics to sightings. The zero value matches
// sequentially.
type Matcher struct {
	workers int
}

// MatchOption configures a Matcher.
type MatchOption func(*Matcher)

// WithWorkers spreads the seasonal pass across n goroutines. Values below 2
// keep it sequential.
func WithWorkers(n int) MatchOption {
	return func(m *Matcher) { m.workers = n }
}

// NewMatcher creates a Matcher.
func NewMatcher(opts ...MatchOption) *Matcher {
	m := &Matcher{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match enriches every sighting, returning one record per input in the same
// order. Inputs are expected to be region-filtered; key comes from
// ResolveSpeciesKey.
//
// Year-round rows apply first: per species when a key exists, otherwise the
// first year-round row is assigned to every sighting and seasonal rows are
// never consulted. Remaining unmatched sightings with a date take the first
// seasonal row, in TrendSet order, whose window contains the sighting's month
// and day. Candidates are narrowed to the sighting's species when a key
// exists, falling back to every seasonal row when none share it.
func (m *Matcher) Match(sightings SightingSet, trends TrendSet, key SpeciesKey) []EnrichedSighting {
	out := make([]EnrichedSighting, len(sightings.Rows))
	for i, s := range sightings.Rows {
		out[i] = EnrichedSighting{Sighting: s, Enrichment: UnmatchedEnrichment()}
	}

	var yearRound, seasonal []int
	for i, t := range trends.Rows {
		if t.IsYearRound() {
			yearRound = append(yearRound, i)
		} else {
			seasonal = append(seasonal, i)
		}
	}

	if key == NoSpeciesKey {
		if len(yearRound) > 0 {
			first := yearRound[0]
			e := enrichmentFrom(YearRoundGlobal, first, trends.Rows[first])
			for i := range out {
				out[i].Enrichment = e
			}
			return out
		}
	} else {
		applyYearRoundBySpecies(out, trends, yearRound, key)
	}

	if len(seasonal) == 0 {
		return out
	}

	idx := newSeasonalIndex(trends, seasonal, key)
	m.forEachRow(len(out), func(i int) {
		if out[i].Kind != Unmatched {
			return
		}
		if e, ok := idx.match(out[i].Sighting); ok {
			out[i].Enrichment = e
		}
	})
	return out
}

// Match runs a sequential Matcher.
func Match(sightings SightingSet, trends TrendSet, key SpeciesKey) []EnrichedSighting {
	return NewMatcher().Match(sightings, trends, key)
}

// applyYearRoundBySpecies assigns each species-tagged year-round row to the
// sightings of that species. Rows without a species value are skipped; when a
// species has several year-round rows the last one is kept.
func applyYearRoundBySpecies(out []EnrichedSighting, trends TrendSet, yearRound []int, key SpeciesKey) {
	bySpecies := make(map[string]int, len(yearRound))
	for _, row := range yearRound {
		sp := NormalizeSpecies(trends.Rows[row].SpeciesValue(key))
		if sp == "" {
			continue
		}
		bySpecies[sp] = row
	}
	if len(bySpecies) == 0 {
		return
	}
	for i := range out {
		row, ok := bySpecies[NormalizeSpecies(out[i].SpeciesValue(key))]
		if !ok {
			continue
		}
		out[i].Enrichment = enrichmentFrom(YearRoundBySpecies, row, trends.Rows[row])
	}
}

func (m *Matcher) forEachRow(n int, fn func(i int)) {
	if m.workers < 2 || n < m.workers {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunk := (n + m.workers - 1) / m.workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never fail
}

type seasonalCandidate struct {
	row     int
	window  Window
	bounded bool
}

// seasonalIndex is the read-only view of seasonal rows shared by every
// sighting in the seasonal pass.
type seasonalIndex struct {
	trends    TrendSet
	key       SpeciesKey
	all       []seasonalCandidate
	bySpecies map[string][]seasonalCandidate
}

func newSeasonalIndex(trends TrendSet, seasonal []int, key SpeciesKey) *seasonalIndex {
	idx := &seasonalIndex{
		trends: trends,
		key:    key,
		all:    make([]seasonalCandidate, 0, len(seasonal)),
	}
	if key != NoSpeciesKey {
		idx.bySpecies = make(map[string][]seasonalCandidate)
	}
	for _, row := range seasonal {
		t := trends.Rows[row]
		w, ok := NewWindow(t.StartDate, t.EndDate)
		c := seasonalCandidate{row: row, window: w, bounded: ok}
		idx.all = append(idx.all, c)
		if idx.bySpecies != nil {
			sp := NormalizeSpecies(t.SpeciesValue(key))
			idx.bySpecies[sp] = append(idx.bySpecies[sp], c)
		}
	}
	return idx
}

func (idx *seasonalIndex) candidates(s Sighting) []seasonalCandidate {
	if idx.bySpecies == nil {
		return idx.all
	}
	if c := idx.bySpecies[NormalizeSpecies(s.SpeciesValue(idx.key))]; len(c) > 0 {
		return c
	}
	return idx.all
}

func (idx *seasonalIndex) match(s Sighting) (Enrichment, bool) {
	if s.ObservationDate == nil {
		return Enrichment{}, false
	}
	md := MonthDayOf(*s.ObservationDate)
	for _, c := range idx.candidates(s) {
		if c.bounded && c.window.Contains(md) {
			return enrichmentFrom(SeasonalMatch, c.row, idx.trends.Rows[c.row]), true
		}
	}
	return Enrichment{}, false
}
