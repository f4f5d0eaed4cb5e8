package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/species-trend-etl/internal/domain"
	"github.com/couchcryptid/species-trend-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
)

// Job names one species dataset pair.
type Job struct {
	Name          string
	SightingsPath string
	TrendsPath    string
}

// Extractor reads the two source tables.
type Extractor interface {
	ExtractSightings(ctx context.Context, path string) (domain.SightingSet, error)
	ExtractTrends(ctx context.Context, path string) (domain.TrendSet, error)
}

// Transformer links sightings with trend intervals.
type Transformer interface {
	Transform(ctx context.Context, sightings domain.SightingSet, trends domain.TrendSet) (Linkage, error)
}

// Batch is one job's linkage handed to the loaders.
type Batch struct {
	RunID   string
	Job     string
	Linkage Linkage
}

// Loader writes a linked batch to a destination.
type Loader interface {
	Name() string
	LoadBatch(ctx context.Context, batch Batch) error
}

// JobResult describes the outcome of one job.
type JobResult struct {
	Job        string
	Err        error
	Sightings  int // rows read before region filtering
	SpeciesKey domain.SpeciesKey
	Summary    domain.Summary
	Duration   time.Duration
}

// Report describes a whole run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Jobs       []JobResult
}

// Failed returns the number of jobs that ended with an error.
func (r Report) Failed() int {
	n := 0
	for _, j := range r.Jobs {
		if j.Err != nil {
			n++
		}
	}
	return n
}

// Pipeline orchestrates the extract-link-load cycle over a list of jobs.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	last        atomic.Pointer[Report]

	loadAttempts   int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLoadRetry sets how many times a failing loader is tried and the first
// backoff between attempts. The backoff doubles up to 5s.
func WithLoadRetry(attempts int, initial time.Duration) Option {
	return func(p *Pipeline) {
		p.loadAttempts = max(attempts, 1)
		p.initialBackoff = initial
	}
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:      e,
		transformer:    t,
		loaders:        loaders,
		logger:         logger,
		metrics:        metrics,
		loadAttempts:   3,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once at least one job has completed,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed any jobs yet")
	}
	return nil
}

// LastReport returns the report of the most recent run, if any.
func (p *Pipeline) LastReport() (Report, bool) {
	r := p.last.Load()
	if r == nil {
		return Report{}, false
	}
	return *r, true
}

// Run processes jobs in order. A failing job is recorded in the report and
// the run moves on to the next one. Run returns the context error if it is
// cancelled before every job has been attempted.
func (p *Pipeline) Run(ctx context.Context, jobs []Job) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: clock.Now(),
		Jobs:      make([]JobResult, 0, len(jobs)),
	}
	p.logger.Info("pipeline started", "run_id", report.RunID, "jobs", len(jobs))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			report.FinishedAt = clock.Now()
			p.last.Store(&report)
			return report, err
		}
		report.Jobs = append(report.Jobs, p.runJob(ctx, report.RunID, job))
	}

	report.FinishedAt = clock.Now()
	p.last.Store(&report)
	p.logger.Info("pipeline finished",
		"run_id", report.RunID,
		"jobs", len(report.Jobs),
		"failed", report.Failed(),
	)
	return report, nil
}

func (p *Pipeline) runJob(ctx context.Context, runID string, job Job) JobResult {
	start := clock.Now()
	logger := p.logger.With("job", job.Name)
	result := JobResult{Job: job.Name}

	fail := func(err error) JobResult {
		result.Err = err
		result.Duration = clock.Since(start)
		p.metrics.JobsTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, domain.ErrMissingRequiredField) {
			logger.Error("job skipped: input cannot be linked", "error", err)
		} else {
			logger.Error("job failed", "error", err)
		}
		return result
	}

	sightings, err := p.extractor.ExtractSightings(ctx, job.SightingsPath)
	if err != nil {
		return fail(fmt.Errorf("extract sightings: %w", err))
	}
	result.Sightings = len(sightings.Rows)
	p.metrics.SightingsRead.Add(float64(len(sightings.Rows)))

	trends, err := p.extractor.ExtractTrends(ctx, job.TrendsPath)
	if err != nil {
		return fail(fmt.Errorf("extract trends: %w", err))
	}

	linkage, err := p.transformer.Transform(ctx, sightings, trends)
	if err != nil {
		return fail(fmt.Errorf("link %s: %w", job.Name, err))
	}
	result.SpeciesKey = linkage.SpeciesKey
	result.Summary = linkage.Summary

	for _, kind := range domain.MatchKinds {
		if n := linkage.Summary.ByMatchKind[kind]; n > 0 {
			p.metrics.Matches.WithLabelValues(kind.String()).Add(float64(n))
		}
	}

	batch := Batch{RunID: runID, Job: job.Name, Linkage: linkage}
	for _, l := range p.loaders {
		if err := p.loadWithRetry(ctx, l, batch); err != nil {
			return fail(fmt.Errorf("load %s: %w", l.Name(), err))
		}
	}
	p.metrics.RecordsWritten.Add(float64(len(linkage.Records)))

	result.Duration = clock.Since(start)
	p.metrics.JobDuration.Observe(result.Duration.Seconds())
	p.metrics.JobsTotal.WithLabelValues("ok").Inc()
	p.ready.Store(true)

	logger.Info("job linked",
		"region", linkage.Region,
		"species_key", string(linkage.SpeciesKey),
		"sightings_read", result.Sightings,
		"records", linkage.Summary.Total,
		"matched", linkage.Summary.Matched(),
		"unmatched", linkage.Summary.ByMatchKind[domain.Unmatched],
		"duration", result.Duration,
	)
	return result
}

// loadWithRetry tries the loader up to loadAttempts times with exponential backoff.
func (p *Pipeline) loadWithRetry(ctx context.Context, l Loader, batch Batch) error {
	backoff := p.initialBackoff
	var err error
	for attempt := 1; attempt <= p.loadAttempts; attempt++ {
		err = l.LoadBatch(ctx, batch)
		if err == nil {
			return nil
		}
		p.metrics.LoadErrors.WithLabelValues(l.Name()).Inc()
		p.logger.Warn("load batch failed",
			"sink", l.Name(),
			"job", batch.Job,
			"attempt", attempt,
			"error", err,
		)
		if attempt == p.loadAttempts {
			break
		}
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}
	return err
}
