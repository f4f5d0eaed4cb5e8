// Command validate checks a merged output file against the sighting export
// it was produced from: row counts, row order, season and statistic
// sentinels, the season domain, and abundance class labels.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -sightings data/raw/ebd_woothr.txt \
//	  -trends data/raw/woothr_regional_2023.csv \
//	  -enriched data/processed/wood_thrush_merged_data.csv \
//	  -region us-md
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/species-trend-etl/internal/adapter/tabular"
	"github.com/couchcryptid/species-trend-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxErrors caps the per-phase detail printed for large files.
const maxErrors = 20

func main() {
	sightings := flag.String("sightings", "", "sighting export the merged file was built from")
	trends := flag.String("trends", "", "trend summary (optional; enables the season domain check)")
	enriched := flag.String("enriched", "", "merged output file to validate")
	region := flag.String("region", "us-md", "target region used for the run")
	flag.Parse()

	if *sightings == "" || *enriched == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, *sightings, *trends, *enriched, *region))
}

func run(out io.Writer, sightingsPath, trendsPath, enrichedPath, region string) int {
	fmt.Fprintln(out, "=== Merged Output Validation ===")
	fmt.Fprintln(out)

	sightings, err := tabular.ReadSightings(sightingsPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	trends := domain.TrendSet{}
	if trendsPath != "" {
		if trends, err = tabular.ReadTrends(trendsPath); err != nil {
			fmt.Fprintf(out, "FATAL: %v\n", err)
			return 1
		}
	}
	records, _, err := tabular.ReadEnriched(enrichedPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	expected, regionTrends, err := domain.FilterRegion(
		domain.NormalizeSightings(sightings), domain.NormalizeTrends(trends), region)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCardinality(expected, records),
		validateOrder(expected, records),
		validateSentinels(records, regionTrends, trendsPath != ""),
		validateClasses(records),
	}
	if trendsPath != "" {
		phases = append(phases, validateSeasonDomain(regionTrends, records))
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-32s %s\n", p.name, status)
	}

	fmt.Fprintf(out, "\nRecords: %d sightings read, %d in region, %d enriched\n",
		len(sightings.Rows), len(expected.Rows), len(records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrors {
				fmt.Fprintf(out, "  ... %d more\n", len(p.errors)-maxErrors)
				break
			}
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// validateCardinality: one output row per in-region sighting.
func validateCardinality(expected domain.SightingSet, records []domain.ClassifiedSighting) *phase {
	p := &phase{name: "Cardinality"}
	if len(expected.Rows) != len(records) {
		p.errorf("expected %d rows for the region, got %d", len(expected.Rows), len(records))
	}
	return p
}

// validateOrder compares sighting identity row by row.
func validateOrder(expected domain.SightingSet, records []domain.ClassifiedSighting) *phase {
	p := &phase{name: "Row order and identity"}
	n := min(len(expected.Rows), len(records))
	for i := range n {
		want := domain.SightingID(expected.Rows[i])
		got := domain.SightingID(records[i].Sighting)
		if want != got {
			p.errorf("row %d: expected sighting %s, got %s", i+2, want, got)
		}
	}
	return p
}

// validateSentinels: every row carries a season. A matched trend row with a
// blank season label reports "n/a" but keeps its statistics, so "n/a" implies
// no statistics only when the region's trend rows are known and all labelled.
func validateSentinels(records []domain.ClassifiedSighting, trends domain.TrendSet, haveTrends bool) *phase {
	p := &phase{name: "Season sentinels"}
	strict := haveTrends
	for _, t := range trends.Rows {
		if t.Season == "" {
			strict = false
			break
		}
	}
	for i, r := range records {
		if r.Season == "" {
			p.errorf("row %d: empty season (want %q when unmatched)", i+2, domain.SeasonUnmatched)
			continue
		}
		if strict && r.Season == domain.SeasonUnmatched && (r.AbundanceMean != nil || r.TotalPopPercent != nil) {
			p.errorf("row %d: season %q with statistics present", i+2, r.Season)
		}
	}
	return p
}

// validateClasses recomputes the median split. Skipped when the file has no
// class labels.
func validateClasses(records []domain.ClassifiedSighting) *phase {
	p := &phase{name: "Abundance classes"}
	labelled := 0
	for _, r := range records {
		if r.AbundanceClass != "" {
			labelled++
		}
	}
	if labelled == 0 {
		return p
	}
	if labelled != len(records) {
		p.errorf("%d of %d rows carry a class label", labelled, len(records))
	}

	enriched := make([]domain.EnrichedSighting, len(records))
	for i, r := range records {
		enriched[i] = r.EnrichedSighting
	}
	for i, want := range domain.ClassifyAbundance(enriched) {
		got := records[i].AbundanceClass
		if got != "" && got != want.AbundanceClass {
			p.errorf("row %d: class %q, expected %q", i+2, got, want.AbundanceClass)
		}
	}
	return p
}

// validateSeasonDomain: every matched season appears in the region's trend rows.
func validateSeasonDomain(trends domain.TrendSet, records []domain.ClassifiedSighting) *phase {
	p := &phase{name: "Season domain"}
	known := map[string]bool{domain.SeasonUnmatched: true}
	for _, t := range trends.Rows {
		known[domain.NormalizeCode(t.Season)] = true
	}
	for i, r := range records {
		if !known[r.Season] {
			p.errorf("row %d: season %q not present in trend rows", i+2, r.Season)
		}
	}
	return p
}
