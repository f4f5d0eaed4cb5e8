// Package tabular reads eBird sighting exports and Status & Trends summaries
// from delimited text files and writes enriched sightings back out as CSV.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/species-trend-etl/internal/domain"
)

// ErrUnsupportedFileType is returned for paths that are neither .csv nor .txt.
var ErrUnsupportedFileType = errors.New("unsupported file type: only .csv and .txt files are supported")

var sightingColumns = []string{
	domain.ColScientificName,
	domain.ColCommonName,
	domain.ColSpeciesCode,
	domain.ColSpecies,
	domain.ColObservationCount,
	domain.ColObservationDate,
	domain.ColStateCode,
	domain.ColLatitude,
	domain.ColLongitude,
}

var trendColumns = []string{
	domain.ColAbundanceMean,
	domain.ColTotalPopPercent,
	domain.ColRegionCode,
	domain.ColSeason,
	domain.ColStartDate,
	domain.ColEndDate,
	domain.ColScientificName,
	domain.ColCommonName,
	domain.ColSpeciesCode,
	domain.ColSpecies,
}

// Reader implements pipeline.Extractor over local files.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a file Reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// ExtractSightings reads an EBD export.
func (r *Reader) ExtractSightings(_ context.Context, path string) (domain.SightingSet, error) {
	set, err := ReadSightings(path)
	if err != nil {
		return domain.SightingSet{}, err
	}
	r.logger.Debug("read sightings", "path", path, "rows", len(set.Rows), "columns", []string(set.Columns))
	return set, nil
}

// ExtractTrends reads a Status & Trends regional summary.
func (r *Reader) ExtractTrends(_ context.Context, path string) (domain.TrendSet, error) {
	set, err := ReadTrends(path)
	if err != nil {
		return domain.TrendSet{}, err
	}
	r.logger.Debug("read trends", "path", path, "rows", len(set.Rows), "columns", []string(set.Columns))
	return set, nil
}

// ReadSightings loads the sighting columns of a delimited file. Columns the
// file lacks are absent from the returned ColumnSet.
func ReadSightings(path string) (domain.SightingSet, error) {
	t, err := readTable(path)
	if err != nil {
		return domain.SightingSet{}, fmt.Errorf("read sightings: %w", err)
	}
	set := domain.SightingSet{
		Columns: t.keep(sightingColumns),
		Rows:    make([]domain.Sighting, 0, len(t.rows)),
	}
	for _, row := range t.rows {
		set.Rows = append(set.Rows, sightingFromRow(t, row))
	}
	return set, nil
}

// ReadTrends loads the trend columns of a delimited file. Row order is kept.
func ReadTrends(path string) (domain.TrendSet, error) {
	t, err := readTable(path)
	if err != nil {
		return domain.TrendSet{}, fmt.Errorf("read trends: %w", err)
	}
	set := domain.TrendSet{
		Columns: t.keep(trendColumns),
		Rows:    make([]domain.TrendInterval, 0, len(t.rows)),
	}
	for _, row := range t.rows {
		set.Rows = append(set.Rows, domain.TrendInterval{
			SpeciesNames:    speciesFromRow(t, row),
			RegionCode:      t.value(row, domain.ColRegionCode),
			Season:          t.value(row, domain.ColSeason),
			StartDate:       parseDate(t.value(row, domain.ColStartDate)),
			EndDate:         parseDate(t.value(row, domain.ColEndDate)),
			AbundanceMean:   parseFloat(t.value(row, domain.ColAbundanceMean)),
			TotalPopPercent: parseFloat(t.value(row, domain.ColTotalPopPercent)),
		})
	}
	return set, nil
}

// ReadEnriched loads a CSV produced by Writer. Match kinds are not stored in
// the file, so every record comes back with Kind Unmatched and TrendRow -1;
// the statistics, season, and class are restored.
func ReadEnriched(path string) ([]domain.ClassifiedSighting, domain.ColumnSet, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read enriched: %w", err)
	}
	records := make([]domain.ClassifiedSighting, 0, len(t.rows))
	for _, row := range t.rows {
		e := domain.UnmatchedEnrichment()
		e.AbundanceMean = parseFloat(t.value(row, domain.ColAbundanceMean))
		e.TotalPopPercent = parseFloat(t.value(row, domain.ColTotalPopPercent))
		if season := t.value(row, domain.ColSeason); season != "" {
			e.Season = season
		}
		records = append(records, domain.ClassifiedSighting{
			EnrichedSighting: domain.EnrichedSighting{Sighting: sightingFromRow(t, row), Enrichment: e},
			AbundanceClass:   t.value(row, domain.ColAbundanceClass),
		})
	}
	return records, t.keep(sightingColumns), nil
}

// table is a parsed delimited file with normalized header names.
type table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func (t *table) value(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// keep returns the wanted columns present in the header, in header order.
func (t *table) keep(wanted []string) domain.ColumnSet {
	var cols domain.ColumnSet
	for _, h := range t.header {
		for _, w := range wanted {
			if h == w && !cols.Has(h) {
				cols = append(cols, h)
			}
		}
	}
	return cols
}

// delimiterFor picks the separator from the file extension: tab for .txt
// (EBD exports), comma for .csv.
func delimiterFor(path string) (rune, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return '\t', nil
	case ".csv":
		return ',', nil
	default:
		return 0, fmt.Errorf("%s: %w", path, ErrUnsupportedFileType)
	}
}

func readTable(path string) (*table, error) {
	comma, err := delimiterFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return parseTable(f, comma)
}

func parseTable(r io.Reader, comma rune) (*table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &table{index: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &table{header: make([]string, len(header)), index: make(map[string]int, len(header))}
	for i, h := range header {
		name := normalizeHeader(h)
		t.header[i] = name
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(row) {
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// normalizeHeader lowercases a column name and joins words with underscores,
// so "OBSERVATION DATE" and "observation_date" match.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func speciesFromRow(t *table, row []string) domain.SpeciesNames {
	return domain.SpeciesNames{
		CommonName:     t.value(row, domain.ColCommonName),
		ScientificName: t.value(row, domain.ColScientificName),
		SpeciesCode:    t.value(row, domain.ColSpeciesCode),
		Species:        t.value(row, domain.ColSpecies),
	}
}

func sightingFromRow(t *table, row []string) domain.Sighting {
	return domain.Sighting{
		SpeciesNames:     speciesFromRow(t, row),
		ObservationCount: parseCount(t.value(row, domain.ColObservationCount)),
		ObservationDate:  parseDate(t.value(row, domain.ColObservationDate)),
		RegionCode:       t.value(row, domain.ColStateCode),
		Latitude:         parseFloat(t.value(row, domain.ColLatitude)),
		Longitude:        parseFloat(t.value(row, domain.ColLongitude)),
	}
}
