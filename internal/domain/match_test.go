package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_CardinalityAndOrder(t *testing.T) {
	rows := []Sighting{
		sighting(testCardinal, date(2023, time.January, 5)),
		sighting(testCardinal, nil),
		sighting(testCardinal, date(2023, time.July, 4)),
	}
	trends := trendSet(false,
		seasonalRow("breeding", date(2022, time.May, 1), date(2022, time.August, 31), 2.5),
	)

	out := Match(sightingSet(rows...), trends, NoSpeciesKey)

	require.Len(t, out, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i], out[i].Sighting)
	}
	assert.Equal(t, Unmatched, out[0].Kind)
	assert.Equal(t, Unmatched, out[1].Kind)
	assert.Equal(t, SeasonalMatch, out[2].Kind)
}

func TestMatch_EmptyInputs(t *testing.T) {
	assert.Empty(t, Match(sightingSet(), trendSet(false), NoSpeciesKey))

	out := Match(sightingSet(sighting(testCardinal, date(2023, time.March, 1))), trendSet(false), NoSpeciesKey)
	require.Len(t, out, 1)
	assert.Equal(t, UnmatchedEnrichment(), out[0].Enrichment)
}

func TestMatch_UnparsableDateKeepsDefaults(t *testing.T) {
	trends := trendSet(false,
		seasonalRow("nonbreeding", date(2022, time.January, 1), date(2022, time.December, 31), 1.0),
	)

	out := Match(sightingSet(sighting(testCardinal, nil)), trends, NoSpeciesKey)

	require.Len(t, out, 1)
	assert.Equal(t, SeasonUnmatched, out[0].Season)
	assert.Nil(t, out[0].AbundanceMean)
	assert.Nil(t, out[0].TotalPopPercent)
	assert.Equal(t, -1, out[0].TrendRow)
}

func TestMatch_YearRoundShortCircuitWithoutSpeciesKey(t *testing.T) {
	trends := trendSet(false,
		seasonalRow("breeding", date(2022, time.January, 1), date(2022, time.December, 31), 9.0),
		yearRoundRow(3.0),
		yearRoundRow(7.0),
	)
	rows := []Sighting{
		sighting(testCardinal, date(2023, time.June, 1)),
		sighting(testOsprey, nil),
	}

	out := Match(sightingSet(rows...), trends, NoSpeciesKey)

	require.Len(t, out, 2)
	for _, r := range out {
		assert.Equal(t, YearRoundGlobal, r.Kind)
		assert.Equal(t, SeasonYearRound, r.Season)
		require.NotNil(t, r.AbundanceMean)
		assert.Equal(t, 3.0, *r.AbundanceMean, "first year-round row wins")
		assert.Equal(t, 1, r.TrendRow)
	}
}

func TestMatch_PerSpeciesYearRoundPrecedence(t *testing.T) {
	trends := trendSet(true,
		withSpecies(seasonalRow("breeding", date(2022, time.March, 1), date(2022, time.September, 30), 5.0), testOsprey),
		withSpecies(yearRoundRow(2.0), testCardinal),
		withSpecies(seasonalRow("breeding", date(2022, time.January, 1), date(2022, time.December, 31), 8.0), testCardinal),
	)
	rows := []Sighting{
		sighting(testCardinal, date(2023, time.May, 10)),
		sighting(testOsprey, date(2023, time.May, 10)),
	}

	out := Match(sightingSet(rows...), trends, KeyCommonName)

	require.Len(t, out, 2)
	assert.Equal(t, YearRoundBySpecies, out[0].Kind)
	assert.Equal(t, 2.0, *out[0].AbundanceMean)
	assert.Equal(t, SeasonYearRound, out[0].Season)

	assert.Equal(t, SeasonalMatch, out[1].Kind)
	assert.Equal(t, 5.0, *out[1].AbundanceMean)
	assert.Equal(t, "breeding", out[1].Season)
	assert.Equal(t, 0, out[1].TrendRow)
}

func TestMatch_YearRoundRowWithoutSpeciesValueSkipped(t *testing.T) {
	trends := trendSet(true,
		yearRoundRow(4.0),
		withSpecies(seasonalRow("breeding", date(2022, time.April, 1), date(2022, time.June, 30), 6.0), testCardinal),
	)

	out := Match(sightingSet(sighting(testCardinal, date(2023, time.May, 1))), trends, KeyCommonName)

	require.Len(t, out, 1)
	assert.Equal(t, SeasonalMatch, out[0].Kind)
	assert.Equal(t, 6.0, *out[0].AbundanceMean)
}

func TestMatch_SpeciesMatchingIsNormalized(t *testing.T) {
	trends := trendSet(true, withSpecies(yearRoundRow(4.0), "northern  CARDINAL"))

	out := Match(sightingSet(sighting(testCardinal, nil)), trends, KeyCommonName)

	assert.Equal(t, YearRoundBySpecies, out[0].Kind)
}

func TestMatch_SpeciesNarrowingFallsBackToAllSeasonalRows(t *testing.T) {
	trends := trendSet(true,
		withSpecies(seasonalRow("breeding", date(2022, time.April, 1), date(2022, time.June, 30), 6.0), testOsprey),
	)

	out := Match(sightingSet(sighting(testCardinal, date(2023, time.May, 1))), trends, KeyCommonName)

	assert.Equal(t, SeasonalMatch, out[0].Kind)
	assert.Equal(t, 6.0, *out[0].AbundanceMean)
}

func TestMatch_SpeciesNarrowingDoesNotFallBackWhenOwnRowsMiss(t *testing.T) {
	trends := trendSet(true,
		withSpecies(seasonalRow("breeding", date(2022, time.April, 1), date(2022, time.June, 30), 6.0), testOsprey),
		withSpecies(seasonalRow("nonbreeding", date(2022, time.November, 1), date(2022, time.February, 28), 1.0), testCardinal),
	)

	out := Match(sightingSet(sighting(testCardinal, date(2023, time.May, 1))), trends, KeyCommonName)

	assert.Equal(t, Unmatched, out[0].Kind)
	assert.Equal(t, SeasonUnmatched, out[0].Season)
}

func TestMatch_FirstMatchWins(t *testing.T) {
	trends := trendSet(false,
		seasonalRow("postbreeding_migration", date(2022, time.July, 1), date(2022, time.October, 31), 1.5),
		seasonalRow("late_summer", date(2022, time.August, 1), date(2022, time.August, 31), 4.5),
	)

	out := Match(sightingSet(sighting(testCardinal, date(2023, time.August, 15))), trends, NoSpeciesKey)

	assert.Equal(t, "postbreeding_migration", out[0].Season)
	assert.Equal(t, 1.5, *out[0].AbundanceMean)
	assert.Equal(t, 0, out[0].TrendRow)
}

func TestMatch_WraparoundWindow(t *testing.T) {
	trends := trendSet(false,
		seasonalRow("nonbreeding", date(2022, time.December, 1), date(2023, time.February, 28), 3.0),
	)
	rows := []Sighting{
		sighting(testCardinal, date(2021, time.January, 15)),
		sighting(testCardinal, date(2019, time.December, 31)),
		sighting(testCardinal, date(2023, time.June, 1)),
	}

	out := Match(sightingSet(rows...), trends, NoSpeciesKey)

	assert.Equal(t, SeasonalMatch, out[0].Kind)
	assert.Equal(t, SeasonalMatch, out[1].Kind)
	assert.Equal(t, Unmatched, out[2].Kind)
}

func TestMatch_SeasonalRowWithMissingBoundsNeverMatches(t *testing.T) {
	trends := trendSet(false, seasonalRow("breeding", nil, date(2022, time.December, 31), 3.0))

	out := Match(sightingSet(sighting(testCardinal, date(2023, time.June, 1))), trends, NoSpeciesKey)

	assert.Equal(t, Unmatched, out[0].Kind)
}

func TestMatch_EmptySeasonLabelDefaultsToSentinel(t *testing.T) {
	trends := trendSet(false, seasonalRow("", date(2022, time.January, 1), date(2022, time.December, 31), 3.0))

	out := Match(sightingSet(sighting(testCardinal, date(2023, time.June, 1))), trends, NoSpeciesKey)

	assert.Equal(t, SeasonalMatch, out[0].Kind)
	assert.Equal(t, SeasonUnmatched, out[0].Season)
	assert.Equal(t, 3.0, *out[0].AbundanceMean)
}

func TestMatch_Idempotent(t *testing.T) {
	trends := trendSet(true,
		withSpecies(yearRoundRow(2.0), testCardinal),
		withSpecies(seasonalRow("breeding", date(2022, time.April, 1), date(2022, time.August, 31), 5.0), testOsprey),
		withSpecies(seasonalRow("nonbreeding", date(2022, time.November, 1), date(2022, time.March, 31), 0.5), testOsprey),
	)
	rows := []Sighting{
		sighting(testCardinal, date(2023, time.January, 1)),
		sighting(testOsprey, date(2023, time.May, 1)),
		sighting(testOsprey, date(2023, time.December, 24)),
		sighting(testOsprey, date(2023, time.October, 1)),
		sighting(testOsprey, nil),
	}
	set := sightingSet(rows...)

	first, err := json.Marshal(Match(set, trends, KeyCommonName))
	require.NoError(t, err)
	second, err := json.Marshal(Match(set, trends, KeyCommonName))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMatcher_ParallelMatchesSequential(t *testing.T) {
	trends := trendSet(true,
		withSpecies(seasonalRow("breeding", date(2022, time.April, 1), date(2022, time.August, 31), 5.0), testOsprey),
		withSpecies(seasonalRow("nonbreeding", date(2022, time.November, 1), date(2022, time.March, 31), 0.5), testOsprey),
		withSpecies(seasonalRow("breeding", date(2022, time.March, 1), date(2022, time.September, 30), 2.0), testCardinal),
	)
	rows := make([]Sighting, 0, 365)
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 365; d++ {
		obs := start.AddDate(0, 0, d)
		name := testOsprey
		if d%3 == 0 {
			name = testCardinal
		}
		rows = append(rows, sighting(name, &obs))
	}
	set := sightingSet(rows...)

	sequential := NewMatcher().Match(set, trends, KeyCommonName)
	parallel := NewMatcher(WithWorkers(8)).Match(set, trends, KeyCommonName)

	assert.Equal(t, sequential, parallel)
}

func TestMatchKind_Text(t *testing.T) {
	for _, kind := range MatchKinds {
		b, err := kind.MarshalText()
		require.NoError(t, err)

		var decoded MatchKind
		require.NoError(t, decoded.UnmarshalText(b))
		assert.Equal(t, kind, decoded)
	}

	var k MatchKind
	assert.Error(t, k.UnmarshalText([]byte("bogus")))
}
