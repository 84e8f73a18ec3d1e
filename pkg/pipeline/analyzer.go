// Package pipeline runs one insider-threat analysis end to end: day
// selection, graph construction, training, prediction and export, strictly
// in that order.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-insider/pkg/activity"
	"github.com/dd0wney/cluso-insider/pkg/calibration"
	"github.com/dd0wney/cluso-insider/pkg/dayselect"
	"github.com/dd0wney/cluso-insider/pkg/graph"
	"github.com/dd0wney/cluso-insider/pkg/groundtruth"
	"github.com/dd0wney/cluso-insider/pkg/ingest"
	"github.com/dd0wney/cluso-insider/pkg/logging"
	"github.com/dd0wney/cluso-insider/pkg/metrics"
	"github.com/dd0wney/cluso-insider/pkg/model"
	"github.com/dd0wney/cluso-insider/pkg/predict"
	"github.com/dd0wney/cluso-insider/pkg/train"
	"github.com/dd0wney/cluso-insider/pkg/visualization"
)

// LogLoader supplies the three activity collections.
type LogLoader interface {
	Load(ctx context.Context) (activity.Logs, error)
}

// Options tunes an Analyzer. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	Policy       calibration.Policy
	Epochs       int
	LearningRate float64
	TopK         int
	Model        model.SAGEConfig
	// TrainTimeout bounds the training stage. Zero means no bound.
	TrainTimeout time.Duration
	// Layout, when set, attaches positions to the graph export.
	Layout visualization.Layout
	// SyntheticFallback substitutes the generated dataset, and its ground
	// truth, when logs cannot be loaded or are empty.
	SyntheticFallback bool
	Synthetic         ingest.SyntheticSpec
}

// DefaultOptions mirrors the demonstration setup.
func DefaultOptions() Options {
	return Options{
		Policy:            calibration.DemoPolicy(),
		Epochs:            train.DefaultEpochs,
		LearningRate:      train.DefaultLearningRate,
		TopK:              predict.DefaultTopK,
		Model:             model.DefaultSAGEConfig(),
		SyntheticFallback: true,
		Synthetic:         ingest.DefaultSyntheticSpec(),
	}
}

// Analyzer runs analyses. It serves one run at a time and holds no lock;
// concurrent analyses need separate analyzers.
type Analyzer struct {
	opts      Options
	logs      LogLoader
	gtLoader  *groundtruth.Loader
	gtSources []groundtruth.RowSource

	builder   *graph.Builder
	trainer   *train.Trainer
	predictor *predict.Predictor
	exporter  *visualization.Exporter

	logger  logging.Logger
	metrics *metrics.Registry
}

// NewAnalyzer wires the stages. logs may be nil when only Analyze is used
// or when the synthetic fallback should always apply.
func NewAnalyzer(opts Options, logs LogLoader, gtSources []groundtruth.RowSource, logger logging.Logger, reg *metrics.Registry) *Analyzer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	tr := train.NewTrainer(logger, reg, opts.Policy)
	tr.Epochs = opts.Epochs
	tr.LearningRate = opts.LearningRate

	pr := predict.NewPredictor(logger, reg, opts.Policy)
	pr.TopK = opts.TopK

	return &Analyzer{
		opts:      opts,
		logs:      logs,
		gtLoader:  groundtruth.NewLoader(logger, reg),
		gtSources: gtSources,
		builder:   graph.NewBuilder(logger),
		trainer:   tr,
		predictor: pr,
		exporter:  &visualization.Exporter{Layout: opts.Layout},
		logger:    logger.With(logging.Component("pipeline")),
		metrics:   reg,
	}
}

// Run loads ground truth and logs concurrently, substitutes synthetic data
// if allowed and needed, then analyses. It always returns a report; failures
// become error reports.
func (a *Analyzer) Run(ctx context.Context) *Report {
	runID := uuid.New().String()
	logger := a.logger.With(logging.RunID(runID))
	logger.Info("starting insider threat analysis")

	var (
		gt   *groundtruth.GroundTruth
		logs activity.Logs
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gt = a.gtLoader.Load(gctx, a.gtSources...)
		return nil
	})
	var loadErr error
	g.Go(func() error {
		if a.logs == nil {
			loadErr = ingest.ErrDatasetMissing
			return nil
		}
		logs, loadErr = a.logs.Load(gctx)
		return nil
	})
	_ = g.Wait()

	source := SourceDataset
	if loadErr == nil && logs.Empty() {
		loadErr = errors.New("activity logs are empty")
	}
	if loadErr != nil {
		if !a.opts.SyntheticFallback || ctx.Err() != nil {
			err := NewError(StageLoad).Cause(loadErr).Err()
			a.metrics.RecordStage(StageLoad, time.Since(start), err)
			return a.fail(logger, runID, err)
		}
		logger.Warn("activity logs unavailable, using synthetic dataset", logging.Error(loadErr))
		ds := ingest.Synthetic(a.opts.Synthetic)
		logs, gt = ds.Logs, ds.GroundTruth
		source = SourceSynthetic
		a.metrics.RecordSyntheticFallback()
	}
	a.metrics.RecordStage(StageLoad, time.Since(start), nil)

	report, err := a.analyze(ctx, logger, runID, logs, gt)
	if err != nil {
		return a.fail(logger, runID, err)
	}
	report.DataSource = source
	return report
}

// Analyze runs the staged pipeline on already loaded inputs. It returns a
// success report or a *StageError; there is no partial result.
func (a *Analyzer) Analyze(ctx context.Context, logs activity.Logs, gt *groundtruth.GroundTruth) (*Report, error) {
	runID := uuid.New().String()
	report, err := a.analyze(ctx, a.logger.With(logging.RunID(runID)), runID, logs, gt)
	if err != nil {
		a.metrics.RecordRun(StatusError)
		return nil, err
	}
	report.DataSource = SourceProvided
	return report, nil
}

func (a *Analyzer) analyze(ctx context.Context, logger logging.Logger, runID string, logs activity.Logs, gt *groundtruth.GroundTruth) (*Report, error) {
	if gt == nil {
		gt = groundtruth.New()
	}

	days := logs.Days()
	var sel dayselect.Selection
	err := a.stage(StageSelectDay, nil, func() error {
		var err error
		sel, err = dayselect.Select(days, gt.Days())
		return err
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordDaySelection(string(sel.Strategy), sel.Day.Time())
	first, _ := days.Min()
	last, _ := days.Max()
	logger.Info("selected analysis day",
		logging.Day(sel.Day),
		logging.String("strategy", string(sel.Strategy)),
		logging.Int("days_available", days.Len()),
		logging.String("date_range", first.String()+" to "+last.String()),
		logging.Int("malicious_days", gt.DayCount()),
	)

	var g *graph.Graph
	if err := a.stage(StageBuild, &sel.Day, func() error {
		var err error
		g, err = a.builder.Build(logs, sel.Day, gt)
		return err
	}); err != nil {
		return nil, err
	}
	a.metrics.SetGraphSize(g.CountByType(), g.EdgeCountByKind())

	var trained *train.Result
	if err := a.stage(StageTrain, &sel.Day, func() error {
		tctx := ctx
		if a.opts.TrainTimeout > 0 {
			var cancel context.CancelFunc
			tctx, cancel = context.WithTimeout(ctx, a.opts.TrainTimeout)
			defer cancel()
		}
		scorer, err := model.NewSAGE(a.opts.Model)
		if err != nil {
			return err
		}
		trained, err = a.trainer.Train(tctx, g, scorer)
		return err
	}); err != nil {
		return nil, err
	}

	var pred *predict.Prediction
	if err := a.stage(StagePredict, &sel.Day, func() error {
		var err error
		pred, err = a.predictor.Predict(trained.Model, g, gt)
		return err
	}); err != nil {
		return nil, err
	}

	var export *visualization.GraphExport
	if err := a.stage(StageExport, &sel.Day, func() error {
		var err error
		export, err = a.exporter.Export(g, pred.Scores, gt)
		return err
	}); err != nil {
		return nil, err
	}

	a.metrics.RecordRun(StatusSuccess)
	logger.Info("analysis completed",
		logging.Day(sel.Day),
		logging.Int("ranked", len(pred.Ranked)),
		logging.Loss(trained.FinalLoss()),
	)
	return &Report{
		Status:            StatusSuccess,
		RunID:             runID,
		AnalysisDate:      sel.Day.String(),
		DaySelection:      string(sel.Strategy),
		RankedUsers:       pred.Ranked,
		GraphExport:       export,
		TrainingLossCurve: trained.Losses,
		Summary: &Summary{
			TotalNodes:          g.NumNodes(),
			TotalEdges:          g.NumEdges(),
			UsersAnalyzed:       len(g.UserIndices()),
			KnownMaliciousCount: gt.UserCount(),
			DateRangeStart:      first.String(),
			DateRangeEnd:        last.String(),
			TotalDaysAvailable:  days.Len(),
		},
	}, nil
}

// stage times fn and wraps its error as a StageError.
func (a *Analyzer) stage(name string, day *activity.Day, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil {
		b := NewError(name).Cause(err)
		if day != nil {
			b.Day(*day)
		}
		err = b.Err()
	}
	a.metrics.RecordStage(name, time.Since(start), err)
	return err
}

func (a *Analyzer) fail(logger logging.Logger, runID string, err error) *Report {
	logger.Error("analysis failed", logging.Stage(StageOf(err)), logging.Error(err))
	a.metrics.RecordRun(StatusError)
	return ErrorReport(runID, err)
}
