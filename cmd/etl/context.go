package main

import (
	"fmt"
	"log/slog"

	kafkaadapter "github.com/couchcryptid/species-trend-etl/internal/adapter/kafka"
	"github.com/couchcryptid/species-trend-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/species-trend-etl/internal/adapter/tabular"
	"github.com/couchcryptid/species-trend-etl/internal/config"
	"github.com/couchcryptid/species-trend-etl/internal/observability"
	"github.com/couchcryptid/species-trend-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// commandContext carries flag values and process-wide hooks shared by every
// subcommand.
type commandContext struct {
	jobsFlag      string
	regionFlag    string
	outputDirFlag string

	newLogger  func(level, format string) *slog.Logger
	newMetrics func() *observability.Metrics
}

func newCommandContext() *commandContext {
	return &commandContext{
		newLogger:  sharedobs.NewLogger,
		newMetrics: observability.NewMetrics,
	}
}

// loadConfig reads the environment and applies flag overrides.
func (cc *commandContext) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cc.jobsFlag != "" {
		cfg.JobsFile = cc.jobsFlag
	}
	if cc.regionFlag != "" {
		cfg.TargetRegion = cc.regionFlag
	}
	if cc.outputDirFlag != "" {
		cfg.OutputDir = cc.outputDirFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is a fully wired pipeline with its jobs and the sinks to close.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	jobs     []pipeline.Job
	closers  []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// newApp loads the manifest and wires the reader, linker, and every enabled sink.
func (cc *commandContext) newApp() (*app, error) {
	cfg, err := cc.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cc.newLogger(cfg.LogLevel, cfg.LogFormat)

	manifest, err := config.LoadManifest(cfg.JobsFile)
	if err != nil {
		return nil, err
	}
	region := cfg.TargetRegion
	if cc.regionFlag == "" && manifest.TargetRegion != "" {
		region = manifest.TargetRegion
	}

	a := &app{cfg: cfg, logger: logger}

	loaders := []pipeline.Loader{tabular.NewWriter(cfg.OutputDir, logger)}
	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		loaders = append(loaders, store)
		a.closers = append(a.closers, namedCloser{"sqlite", store.Close})
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, writer)
		a.closers = append(a.closers, namedCloser{"kafka", writer.Close})
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	linker := pipeline.NewLinker(region, cfg.ClassifyAbundance, cfg.MatchWorkers, logger)
	a.pipeline = pipeline.New(tabular.NewReader(logger), linker, loaders, logger, cc.newMetrics())

	for _, sp := range manifest.Species {
		a.jobs = append(a.jobs, pipeline.Job{
			Name:          sp.Name,
			SightingsPath: sp.Sightings,
			TrendsPath:    sp.Trends,
		})
	}
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.close(); err != nil {
			a.logger.Error("sink close error", "sink", c.name, "error", err)
		}
	}
}
