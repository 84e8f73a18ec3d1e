// Package calibration holds the demo calibration policy: the
// positive-sample fallback applied before and during training and the
// known-malicious score boost applied after inference. Both steps are
// independently toggleable so graph construction and the training loop
// never change when they are switched off.
package calibration

import (
	"math"
	"sort"

	"github.com/dd0wney/cluso-insider/pkg/graph"
	"github.com/dd0wney/cluso-insider/pkg/groundtruth"
)

const (
	DefaultFallbackCount = 3
	DefaultBoostAmount   = 0.8
)

// Policy configures the two calibration steps.
type Policy struct {
	// InjectPositives labels the highest-degree users as positive when the
	// training mask holds no positive label.
	InjectPositives bool
	FallbackCount   int

	// BoostKnown raises the score of every known-malicious user.
	BoostKnown  bool
	BoostAmount float64
}

// DemoPolicy enables both steps with their default parameters.
func DemoPolicy() Policy {
	return Policy{
		InjectPositives: true,
		FallbackCount:   DefaultFallbackCount,
		BoostKnown:      true,
		BoostAmount:     DefaultBoostAmount,
	}
}

// StrictPolicy disables both steps: labels come only from ground truth and
// scores are the raw model output.
func StrictPolicy() Policy {
	return Policy{FallbackCount: DefaultFallbackCount, BoostAmount: DefaultBoostAmount}
}

// EnsurePositives is the positive-sample fallback. When the policy allows it
// and g has no positive label among train-mask nodes, the min(FallbackCount,
// users) user nodes with the highest degree are labelled 1. Ties go to the
// lower index. The mutation persists on g. It returns the injected indices.
func (p Policy) EnsurePositives(g *graph.Graph) []int {
	if !p.InjectPositives || g == nil || g.PositiveCount() > 0 {
		return nil
	}
	users := g.UserIndices()
	sort.SliceStable(users, func(a, b int) bool {
		return g.Nodes[users[a]].Degree > g.Nodes[users[b]].Degree
	})
	k := p.FallbackCount
	if k > len(users) {
		k = len(users)
	}
	if k <= 0 {
		return nil
	}
	picked := users[:k]
	for _, i := range picked {
		g.Labels[i] = 1
	}
	sort.Ints(picked)
	return picked
}

// Boost is the known-malicious score boost. For every user node whose key is
// in gt, BoostAmount is added to scores[i] and the result clamped to [0, 1].
// scores is modified in place; the boosted indices are returned.
func (p Policy) Boost(g *graph.Graph, gt *groundtruth.GroundTruth, scores []float64) []int {
	if !p.BoostKnown || g == nil {
		return nil
	}
	var boosted []int
	for _, i := range g.UserIndices() {
		if i >= len(scores) || !gt.IsMaliciousUser(g.Key(i)) {
			continue
		}
		scores[i] = Clamp(scores[i] + p.BoostAmount)
		boosted = append(boosted, i)
	}
	return boosted
}

// Clamp limits v to [0, 1].
func Clamp(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
