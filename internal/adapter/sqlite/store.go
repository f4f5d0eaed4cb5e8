// Package sqlite persists enriched sightings to a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/species-trend-etl/internal/domain"
	"github.com/couchcryptid/species-trend-etl/internal/pipeline"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS enriched_sightings (
    run_id            TEXT    NOT NULL,
    job               TEXT    NOT NULL,
    seq               INTEGER NOT NULL,
    sighting_id       TEXT    NOT NULL,
    common_name       TEXT,
    scientific_name   TEXT,
    species_code      TEXT,
    species           TEXT,
    observation_count INTEGER,
    observation_date  TEXT,
    state_code        TEXT,
    latitude          REAL,
    longitude         REAL,
    match_kind        TEXT    NOT NULL,
    trend_row         INTEGER NOT NULL,
    abundance_mean    REAL,
    total_pop_percent REAL,
    season            TEXT    NOT NULL,
    abundance_class   TEXT,
    PRIMARY KEY (run_id, job, seq)
);
CREATE INDEX IF NOT EXISTS idx_enriched_sightings_sighting_id ON enriched_sightings (sighting_id);
`

const recordColumns = `common_name, scientific_name, species_code, species,
    observation_count, observation_date, state_code, latitude, longitude,
    match_kind, trend_row, abundance_mean, total_pop_percent, season, abundance_class`

const dateLayout = "2006-01-02"

// Store writes enriched sightings to SQLite. It implements pipeline.Loader.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open creates or connects to the database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path, logger: logger}, nil
}

func (s *Store) Name() string { return "sqlite" }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LoadBatch inserts every record of the batch in one transaction. Rows are
// keyed by (run_id, job, seq), so a retried batch replaces its earlier rows.
func (s *Store) LoadBatch(ctx context.Context, batch pipeline.Batch) error {
	err := retryOnBusy(ctx, func() error {
		return s.insertBatch(ctx, batch)
	})
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	s.logger.Debug("stored enriched sightings", "job", batch.Job, "path", s.path, "rows", len(batch.Linkage.Records))
	return nil
}

func (s *Store) insertBatch(ctx context.Context, batch pipeline.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO enriched_sightings (
        run_id, job, seq, sighting_id, `+recordColumns+`
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range batch.Linkage.Records {
		_, err := stmt.ExecContext(ctx,
			batch.RunID,
			batch.Job,
			i,
			domain.SightingID(r.Sighting),
			nullableString(r.CommonName),
			nullableString(r.ScientificName),
			nullableString(r.SpeciesCode),
			nullableString(r.Species),
			nullableInt(r.ObservationCount),
			nullableDate(r.ObservationDate),
			nullableString(r.RegionCode),
			nullableFloat(r.Latitude),
			nullableFloat(r.Longitude),
			r.Kind.String(),
			r.TrendRow,
			nullableFloat(r.AbundanceMean),
			nullableFloat(r.TotalPopPercent),
			r.Season,
			nullableString(r.AbundanceClass),
		)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of rows stored for a run.
func (s *Store) Count(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM enriched_sightings WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// Records returns the rows stored for one job of a run, in input order.
func (s *Store) Records(ctx context.Context, runID, job string) ([]domain.ClassifiedSighting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM enriched_sightings WHERE run_id = ? AND job = ? ORDER BY seq`,
		runID, job)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []domain.ClassifiedSighting
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func scanRecord(rows *sql.Rows) (domain.ClassifiedSighting, error) {
	var (
		common, scientific, code, species sql.NullString
		count                             sql.NullInt64
		date, state                       sql.NullString
		lat, lon                          sql.NullFloat64
		kind                              string
		trendRow                          int
		mean, pct                         sql.NullFloat64
		season                            string
		class                             sql.NullString
	)
	if err := rows.Scan(&common, &scientific, &code, &species, &count, &date, &state,
		&lat, &lon, &kind, &trendRow, &mean, &pct, &season, &class); err != nil {
		return domain.ClassifiedSighting{}, fmt.Errorf("scan record: %w", err)
	}

	var r domain.ClassifiedSighting
	if err := r.Kind.UnmarshalText([]byte(kind)); err != nil {
		return domain.ClassifiedSighting{}, err
	}
	r.SpeciesNames = domain.SpeciesNames{
		CommonName:     common.String,
		ScientificName: scientific.String,
		SpeciesCode:    code.String,
		Species:        species.String,
	}
	if count.Valid {
		n := int(count.Int64)
		r.ObservationCount = &n
	}
	if date.Valid {
		if t, err := time.Parse(dateLayout, date.String); err == nil {
			r.ObservationDate = &t
		}
	}
	r.RegionCode = state.String
	r.Latitude = floatPtr(lat)
	r.Longitude = floatPtr(lon)
	r.TrendRow = trendRow
	r.AbundanceMean = floatPtr(mean)
	r.TotalPopPercent = floatPtr(pct)
	r.Season = season
	r.AbundanceClass = class.String
	return r, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDate(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.Format(dateLayout)
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
