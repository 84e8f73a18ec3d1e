package config

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-insider/pkg/calibration"
	"github.com/dd0wney/cluso-insider/pkg/groundtruth"
	"github.com/dd0wney/cluso-insider/pkg/ingest"
	"github.com/dd0wney/cluso-insider/pkg/logging"
	"github.com/dd0wney/cluso-insider/pkg/metrics"
	"github.com/dd0wney/cluso-insider/pkg/model"
	"github.com/dd0wney/cluso-insider/pkg/pipeline"
	"github.com/dd0wney/cluso-insider/pkg/visualization"
)

// Policy returns the calibration policy.
func (c Config) Policy() calibration.Policy {
	return calibration.Policy{
		InjectPositives: c.Calibration.InjectPositives,
		FallbackCount:   c.Calibration.FallbackCount,
		BoostKnown:      c.Calibration.BoostKnown,
		BoostAmount:     c.Calibration.BoostAmount,
	}
}

// Options builds analyzer options, including the export layout.
func (c Config) Options() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	opts.Policy = c.Policy()
	opts.Epochs = c.Training.Epochs
	opts.LearningRate = c.Training.LearningRate
	opts.TopK = c.Ranking.TopK
	opts.TrainTimeout = c.Training.Timeout
	opts.Model = model.SAGEConfig{
		InputDim:  model.DefaultSAGEConfig().InputDim,
		Hidden:    c.Training.Hidden,
		Embedding: c.Training.Embedding,
		Seed:      c.Training.Seed,
	}
	opts.SyntheticFallback = c.Data.SyntheticFallback
	opts.Synthetic.Seed = c.Data.SyntheticSeed

	lc := visualization.DefaultLayoutConfig()
	lc.Width = c.Export.Width
	lc.Height = c.Export.Height
	layout, err := visualization.NewLayout(c.Export.Layout, lc)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts.Layout = layout
	return opts, nil
}

// Opener returns the activity log opener for the configured source.
func (c Config) Opener(ctx context.Context) (ingest.Opener, error) {
	if c.Data.Source == SourceS3 {
		return ingest.NewS3Opener(ctx, c.Data.S3.Bucket, c.Data.S3.Prefix, c.Data.S3.Region)
	}
	return ingest.DirOpener{Dir: c.Data.Dir}, nil
}

// FileSources returns one ground-truth source per answer file.
func (c Config) FileSources() []groundtruth.RowSource {
	sources := make([]groundtruth.RowSource, 0, len(c.GroundTruth.Files))
	for _, f := range c.GroundTruth.Files {
		sources = append(sources, groundtruth.FileSource(f))
	}
	return sources
}

// Runtime is a wired analyzer plus the resources it holds.
type Runtime struct {
	Analyzer *pipeline.Analyzer
	// Ping checks the ground-truth database; nil when none is configured.
	Ping  func(ctx context.Context) error
	close func()
}

// Close releases the Postgres pool, if one was opened.
func (r *Runtime) Close() {
	if r.close != nil {
		r.close()
	}
}

// Runtime wires an analyzer from the configuration. When syntheticOnly is
// set no log source is opened and the generated dataset is always used.
func (c Config) Runtime(ctx context.Context, syntheticOnly bool, logger logging.Logger, reg *metrics.Registry) (*Runtime, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	rt := &Runtime{}
	sources := c.FileSources()
	if c.GroundTruth.PostgresURL != "" {
		// ground truth never fails a run; an unreachable database is one
		// more skipped source
		pool, err := groundtruth.NewPostgresPool(ctx, c.GroundTruth.PostgresURL)
		if err != nil {
			logger.Warn("ground-truth database unavailable, continuing with answer files",
				logging.Source("postgres"), logging.Error(err))
		} else {
			rt.close = pool.Close
			rt.Ping = pool.Ping
			sources = append(sources, groundtruth.PostgresSource{DB: pool, SQL: c.GroundTruth.Query})
		}
	}

	var logs pipeline.LogLoader
	if syntheticOnly {
		opts.SyntheticFallback = true
	} else {
		opener, err := c.Opener(ctx)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("activity log source: %w", err)
		}
		logs = ingest.NewLoader(opener, c.Data.Limits, logger, reg)
	}

	rt.Analyzer = pipeline.NewAnalyzer(opts, logs, sources, logger, reg)
	return rt, nil
}
