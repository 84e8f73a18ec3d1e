// Package predict turns a trained scorer's output into a ranked list of
// suspicious users.
package predict

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-insider/pkg/calibration"
	"github.com/dd0wney/cluso-insider/pkg/graph"
	"github.com/dd0wney/cluso-insider/pkg/groundtruth"
	"github.com/dd0wney/cluso-insider/pkg/logging"
	"github.com/dd0wney/cluso-insider/pkg/metrics"
	"github.com/dd0wney/cluso-insider/pkg/model"
)

const (
	DefaultTopK = 100

	logTop = 10
)

// ErrModelNotTrained is returned when prediction runs without a scorer.
var ErrModelNotTrained = errors.New("model not trained")

// Result is one ranked user.
type Result struct {
	User             string  `json:"user"`
	Score            float64 `json:"score"`
	IsKnownMalicious bool    `json:"isKnownMalicious"`
}

// Prediction is the ranking together with the score of every node.
type Prediction struct {
	Ranked []Result
	// Scores holds the final per-node score, indexed like the graph nodes.
	Scores  []float64
	Boosted []int
}

// KnownMaliciousRanked counts ranked users present in ground truth.
func (p *Prediction) KnownMaliciousRanked() int {
	n := 0
	for _, r := range p.Ranked {
		if r.IsKnownMalicious {
			n++
		}
	}
	return n
}

// Predictor scores a graph and ranks its users.
type Predictor struct {
	TopK   int
	Policy calibration.Policy

	logger  logging.Logger
	metrics *metrics.Registry
}

// NewPredictor returns a predictor with the default TopK.
func NewPredictor(logger logging.Logger, reg *metrics.Registry, policy calibration.Policy) *Predictor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Predictor{
		TopK:    DefaultTopK,
		Policy:  policy,
		logger:  logger.With(logging.Component("predictor")),
		metrics: reg,
	}
}

// Predict runs inference, converts logits to probabilities, applies the
// policy boost and ranks user nodes by score descending. Equal scores are
// ordered by user key ascending. The list is truncated to TopK when TopK is
// positive.
func (p *Predictor) Predict(scorer model.Scorer, g *graph.Graph, gt *groundtruth.GroundTruth) (*Prediction, error) {
	if scorer == nil {
		return nil, ErrModelNotTrained
	}
	if g == nil || g.NumNodes() == 0 {
		return nil, fmt.Errorf("predict: %w: graph has no nodes", model.ErrModelInput)
	}

	logits, err := scorer.Forward(g.ModelInput())
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(logits) != g.NumNodes() {
		return nil, fmt.Errorf("predict: %w: %d logits for %d nodes", model.ErrModelInput, len(logits), g.NumNodes())
	}

	scores := make([]float64, len(logits))
	for i, z := range logits {
		scores[i] = model.Sigmoid(z)
	}

	boosted := p.Policy.Boost(g, gt, scores)
	for _, i := range boosted {
		p.logger.Debug("boosted known malicious user",
			logging.User(g.Key(i)),
			logging.Float64("score", scores[i]),
		)
	}

	ranked := Rank(g, gt, scores, p.TopK)
	pred := &Prediction{Ranked: ranked, Scores: scores, Boosted: boosted}

	p.metrics.RecordRanking(len(boosted), len(ranked), pred.KnownMaliciousRanked())
	p.logTop(ranked)
	return pred, nil
}

// Rank builds the sorted user list from per-node scores. topK <= 0 keeps
// every user.
func Rank(g *graph.Graph, gt *groundtruth.GroundTruth, scores []float64, topK int) []Result {
	users := g.UserIndices()
	out := make([]Result, 0, len(users))
	for _, i := range users {
		key := g.Key(i)
		out = append(out, Result{
			User:             key,
			Score:            scores[i],
			IsKnownMalicious: gt.IsMaliciousUser(key),
		})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].User < out[b].User
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func (p *Predictor) logTop(ranked []Result) {
	n := len(ranked)
	if n > logTop {
		n = logTop
	}
	for i, r := range ranked[:n] {
		p.logger.Info("ranked user",
			logging.Int("rank", i+1),
			logging.User(r.User),
			logging.Float64("score", r.Score),
			logging.Bool("known_malicious", r.IsKnownMalicious),
		)
	}
}
