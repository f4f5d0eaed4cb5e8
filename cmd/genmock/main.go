// Command genmock writes deterministic eBird-style sighting exports, Status &
// Trends regional summaries, and a jobs.toml manifest that ties them
// together. The output feeds local runs and the integration tests.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock -rows 200 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/species-trend-etl/internal/config"
	"github.com/pelletier/go-toml/v2"
)

const year = 2023

// speciesDef describes one mock species. Residents get a single year_round
// trend row; migrants get four seasonal rows with gaps between them.
type speciesDef struct {
	code       string
	common     string
	scientific string
	resident   bool
}

var defaultSpecies = []speciesDef{
	{code: "woothr", common: "Wood Thrush", scientific: "Hylocichla mustelina"},
	{code: "norcar", common: "Northern Cardinal", scientific: "Cardinalis cardinalis", resident: true},
	{code: "balori", common: "Baltimore Oriole", scientific: "Icterus galbula"},
}

// season windows for migrants; nonbreeding wraps the year end.
var migrantSeasons = []struct {
	name       string
	start, end string
}{
	{"prebreeding_migration", "03-15", "05-17"},
	{"breeding", "05-24", "08-03"},
	{"postbreeding_migration", "08-10", "11-16"},
	{"nonbreeding", "12-07", "03-01"},
}

var regions = []struct {
	state string // EBD spelling
	trend string // Status & Trends spelling
	lat   float64
	lon   float64
}{
	{"US-MD", "USA-MD", 39.05, -76.64},
	{"US-VA", "USA-VA", 37.43, -78.66},
}

var ebdHeader = []string{
	"GLOBAL UNIQUE IDENTIFIER", "COMMON NAME", "SCIENTIFIC NAME", "OBSERVATION COUNT",
	"STATE CODE", "LATITUDE", "LONGITUDE", "OBSERVATION DATE",
}

var trendHeader = []string{
	"species_code", "common_name", "scientific_name", "region_code", "season",
	"start_date", "end_date", "abundance_mean", "total_pop_percent",
}

type options struct {
	outDir string
	rows   int
	seed   uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory for generated fixtures")
	rows := flag.Int("rows", 200, "sightings per species")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	if *rows < 1 {
		return fmt.Errorf("-rows must be positive, got %d", *rows)
	}

	manifest, err := generate(options{outDir: *outDir, rows: *rows, seed: *seed})
	if err != nil {
		return err
	}
	for _, sp := range manifest.Species {
		log.Printf("%s: %s, %s", sp.Name, sp.Sightings, sp.Trends)
	}
	log.Printf("wrote manifest: %s", filepath.Join(*outDir, "jobs.toml"))
	return nil
}

// generate writes one sightings/trends pair per species plus jobs.toml, and
// returns the manifest it wrote. Paths in the manifest are relative to outDir.
func generate(opts options) (*config.Manifest, error) {
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))

	manifest := &config.Manifest{TargetRegion: "us-md"}
	for _, sp := range defaultSpecies {
		sightings := sp.code + "_ebd.txt"
		trends := sp.code + "_trends.csv"

		if err := writeDelimited(filepath.Join(opts.outDir, sightings), '\t', ebdHeader, sightingRows(rng, sp, opts.rows)); err != nil {
			return nil, fmt.Errorf("%s sightings: %w", sp.code, err)
		}
		if err := writeDelimited(filepath.Join(opts.outDir, trends), ',', trendHeader, trendRows(rng, sp)); err != nil {
			return nil, fmt.Errorf("%s trends: %w", sp.code, err)
		}
		manifest.Species = append(manifest.Species, config.SpeciesJob{
			Name:      sp.code,
			Sightings: sightings,
			Trends:    trends,
		})
	}

	data, err := toml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.outDir, "jobs.toml"), data, 0o600); err != nil {
		return nil, err
	}
	return manifest, nil
}

func sightingRows(rng *rand.Rand, sp speciesDef, n int) [][]string {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows := make([][]string, 0, n)
	for i := range n {
		reg := regions[rng.IntN(len(regions))]
		date := start.AddDate(0, 0, rng.IntN(365))

		count := strconv.Itoa(1 + rng.IntN(12))
		if rng.IntN(10) == 0 {
			count = "X"
		}
		rows = append(rows, []string{
			fmt.Sprintf("URN:cornelllabofornithology:ebird:%s%06d", sp.code, i),
			sp.common,
			sp.scientific,
			count,
			reg.state,
			strconv.FormatFloat(reg.lat+rng.Float64()-0.5, 'f', 4, 64),
			strconv.FormatFloat(reg.lon+rng.Float64()-0.5, 'f', 4, 64),
			date.Format("2006-01-02"),
		})
	}
	return rows
}

func trendRows(rng *rand.Rand, sp speciesDef) [][]string {
	var rows [][]string
	for _, reg := range regions {
		row := func(season, start, end string) []string {
			return []string{
				sp.code, sp.common, sp.scientific, reg.trend, season, start, end,
				strconv.FormatFloat(0.05+rng.Float64()*2, 'f', 4, 64),
				strconv.FormatFloat(rng.Float64(), 'f', 4, 64),
			}
		}
		if sp.resident {
			rows = append(rows, row("year_round", "", ""))
			continue
		}
		for _, s := range migrantSeasons {
			rows = append(rows, row(s.name, fmt.Sprintf("%d-%s", year, s.start), fmt.Sprintf("%d-%s", year, s.end)))
		}
	}
	return rows
}

func writeDelimited(path string, comma rune, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = comma
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}
