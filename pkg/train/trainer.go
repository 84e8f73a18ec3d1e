// Package train runs the fixed-epoch supervised training loop of a graph
// scorer against the user labels of a built graph.
package train

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-insider/pkg/calibration"
	"github.com/dd0wney/cluso-insider/pkg/graph"
	"github.com/dd0wney/cluso-insider/pkg/logging"
	"github.com/dd0wney/cluso-insider/pkg/metrics"
	"github.com/dd0wney/cluso-insider/pkg/model"
)

const (
	DefaultEpochs       = 25
	DefaultLearningRate = 0.01

	logEvery = 5
)

// Trainer owns the loop parameters. It keeps no state between calls.
type Trainer struct {
	Epochs       int
	LearningRate float64
	Policy       calibration.Policy

	logger  logging.Logger
	metrics *metrics.Registry
}

// Result is a trained scorer and its per-epoch loss curve.
type Result struct {
	Model  model.Scorer
	Losses []float64
	// Injected lists the nodes labelled positive by the fallback.
	Injected []int
}

// FinalLoss returns the loss of the last epoch, or 0 when none ran.
func (r *Result) FinalLoss() float64 {
	if len(r.Losses) == 0 {
		return 0
	}
	return r.Losses[len(r.Losses)-1]
}

// NewTrainer returns a trainer with the default epoch count and learning
// rate. Logger and registry may be nil.
func NewTrainer(logger logging.Logger, reg *metrics.Registry, policy calibration.Policy) *Trainer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Trainer{
		Epochs:       DefaultEpochs,
		LearningRate: DefaultLearningRate,
		Policy:       policy,
		logger:       logger.With(logging.Component("trainer")),
		metrics:      reg,
	}
}

// Train fits m to g.Labels over g.TrainMask with binary cross-entropy and
// Adam, one step per epoch. A nil m trains a fresh default SAGE network.
// The positive-sample fallback runs before the first epoch and again at the
// start of each epoch; its label changes stay on g. ctx is checked between
// epochs so a caller deadline aborts the run.
func (t *Trainer) Train(ctx context.Context, g *graph.Graph, m model.Trainable) (*Result, error) {
	if g == nil || g.NumNodes() == 0 {
		return nil, fmt.Errorf("train: %w: graph has no nodes", model.ErrModelInput)
	}
	if t.Epochs < 0 {
		return nil, fmt.Errorf("train: negative epoch count %d", t.Epochs)
	}
	if m == nil {
		var err error
		if m, err = model.NewSAGE(model.DefaultSAGEConfig()); err != nil {
			return nil, fmt.Errorf("train: %w", err)
		}
	}

	timer := logging.StartTimer(t.logger, "training finished",
		logging.Int("epochs", t.Epochs),
		logging.Float64("learning_rate", t.LearningRate),
		logging.Int("params", model.ParamCount(m.Params())),
	)

	res := &Result{Model: m, Losses: make([]float64, 0, t.Epochs)}
	res.Injected = append(res.Injected, t.ensurePositives(g, 0)...)

	in := g.ModelInput()
	opt := model.NewAdam(t.LearningRate)
	for epoch := 1; epoch <= t.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			timer.EndError(err)
			return nil, fmt.Errorf("train: stopped before epoch %d: %w", epoch, err)
		}

		logits, err := m.Forward(in)
		if err != nil {
			return nil, fmt.Errorf("train: epoch %d: %w", epoch, err)
		}
		res.Injected = append(res.Injected, t.ensurePositives(g, epoch)...)

		loss, grad, err := model.BCEWithLogits(logits, g.Labels, g.TrainMask)
		if err != nil {
			return nil, fmt.Errorf("train: epoch %d: %w", epoch, err)
		}
		if err := m.Backward(grad); err != nil {
			return nil, fmt.Errorf("train: epoch %d: %w", epoch, err)
		}
		opt.Step(m.Params())

		res.Losses = append(res.Losses, loss)
		t.metrics.RecordEpoch(loss)
		if epoch%logEvery == 0 {
			t.logger.Info("epoch complete", logging.Epoch(epoch), logging.Loss(loss))
		}
	}

	timer.End(logging.Loss(res.FinalLoss()), logging.Int("positives", g.PositiveCount()))
	return res, nil
}

func (t *Trainer) ensurePositives(g *graph.Graph, epoch int) []int {
	injected := t.Policy.EnsurePositives(g)
	if len(injected) == 0 {
		return nil
	}
	keys := make([]string, len(injected))
	for i, idx := range injected {
		keys[i] = g.Key(idx)
	}
	t.logger.Warn("no positive samples in training mask, labelling highest-degree users",
		logging.Epoch(epoch),
		logging.Strings("users", keys),
	)
	t.metrics.RecordPositiveFallback(len(injected))
	return injected
}
