// Package domain links bird sighting records with regional population trend
// intervals.
//
// # Data Sources
//
// Sightings come from the eBird Basic Dataset (EBD): one row per observation
// event, tab separated, with a common name, scientific name, observation
// count, observation date, state code, and coordinates. Trend intervals come
// from the eBird Status & Trends regional summaries: one row per region and
// season with the mean relative abundance and the share of the total
// population found in that region.
//
// # Conventions
//
// Region codes:
//
//	EBD state codes look like "US-MD". Status & Trends region codes use the
//	three-letter country prefix, "USA-MD". Both are lowercased and the "usa-"
//	prefix is rewritten to "us-" so the two compare equal. See [NormalizeCode].
//
// Seasons:
//
//	"year_round" is the sentinel for a resident population and applies to any
//	date. Other labels ("breeding", "nonbreeding", "prebreeding_migration",
//	"postbreeding_migration") carry a start and end date. Only month and day
//	are significant; a window whose end precedes its start wraps across the
//	new year (e.g. nonbreeding Nov 1 – Feb 28). See [Window].
//
// Observation counts:
//
//	"X" is the EBD marker for a species recorded as present without a count.
//	It is parsed as a missing count.
//
// Missing values:
//
//	Status & Trends exports write "n/a" or leave cells empty for unknown
//	statistics. Both are parsed as nil.
//
// # Linkage
//
// [NormalizeSightings] and [NormalizeTrends] canonicalize codes,
// [FilterRegion] restricts both sets to one region, [ResolveSpeciesKey] picks a
// shared species column, [Matcher] attaches the trend statistics in effect on
// each sighting date, and [ClassifyAbundance] labels the result Low or High
// around the median abundance.
//
// Every enriched sighting carries a [MatchKind] describing how its statistics
// were found. Sightings that matched nothing keep nil statistics and the
// season "n/a" so downstream consumers can detect gaps without error handling.
package domain
