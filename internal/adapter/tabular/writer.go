package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/species-trend-etl/internal/domain"
	"github.com/couchcryptid/species-trend-etl/internal/pipeline"
)

// Writer writes each job's enriched sightings to <dir>/<job>_merged_data.csv.
// It implements pipeline.Loader.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a CSV sink rooted at dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) Name() string { return "csv" }

// OutputPath returns the file a job's records are written to.
func (w *Writer) OutputPath(job string) string {
	return filepath.Join(w.dir, job+"_merged_data.csv")
}

// LoadBatch writes the batch to a temp file and renames it into place, so a
// failed write never leaves a truncated output behind.
func (w *Writer) LoadBatch(_ context.Context, batch pipeline.Batch) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := w.OutputPath(batch.Job)

	tmp, err := os.CreateTemp(w.dir, ".merged-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	l := batch.Linkage
	if err := WriteEnriched(tmp, l.Columns, l.Records, l.Classified); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}

	w.logger.Info("saved processed data", "job", batch.Job, "path", path, "records", len(l.Records))
	return nil
}

// WriteEnriched writes records as CSV: the sighting columns listed in
// columns (in that order), then abundance_mean, total_pop_percent, season,
// and abundance_class when classified is set. Nil values are empty cells.
func WriteEnriched(out io.Writer, columns domain.ColumnSet, records []domain.ClassifiedSighting, classified bool) error {
	sightingCols := make([]string, 0, len(columns))
	for _, c := range columns {
		if isSightingColumn(c) {
			sightingCols = append(sightingCols, c)
		}
	}

	header := append(append([]string{}, sightingCols...),
		domain.ColAbundanceMean, domain.ColTotalPopPercent, domain.ColSeason)
	if classified {
		header = append(header, domain.ColAbundanceClass)
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for _, r := range records {
		for i, c := range sightingCols {
			row[i] = sightingCell(r.Sighting, c)
		}
		n := len(sightingCols)
		row[n] = formatFloat(r.AbundanceMean)
		row[n+1] = formatFloat(r.TotalPopPercent)
		row[n+2] = r.Season
		if classified {
			row[n+3] = r.AbundanceClass
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func isSightingColumn(c string) bool {
	for _, s := range sightingColumns {
		if s == c {
			return true
		}
	}
	return false
}

func sightingCell(s domain.Sighting, col string) string {
	switch col {
	case domain.ColScientificName:
		return s.ScientificName
	case domain.ColCommonName:
		return s.CommonName
	case domain.ColSpeciesCode:
		return s.SpeciesCode
	case domain.ColSpecies:
		return s.Species
	case domain.ColObservationCount:
		return formatCount(s.ObservationCount)
	case domain.ColObservationDate:
		return formatDate(s.ObservationDate)
	case domain.ColStateCode:
		return s.RegionCode
	case domain.ColLatitude:
		return formatFloat(s.Latitude)
	case domain.ColLongitude:
		return formatFloat(s.Longitude)
	default:
		return ""
	}
}
