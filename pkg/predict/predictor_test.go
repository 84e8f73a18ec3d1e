package predict

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-insider/pkg/activity"
	"github.com/dd0wney/cluso-insider/pkg/calibration"
	"github.com/dd0wney/cluso-insider/pkg/graph"
	"github.com/dd0wney/cluso-insider/pkg/groundtruth"
	"github.com/dd0wney/cluso-insider/pkg/model"
)

var day = activity.MustParseDay("2010-05-05")

// fixedScorer returns preset logits, ignoring its input.
type fixedScorer []float64

func (f fixedScorer) Forward(model.Input) ([]float64, error) {
	return append([]float64(nil), f...), nil
}

type failingScorer struct{}

func (failingScorer) Forward(model.Input) ([]float64, error) {
	return nil, errors.New("boom")
}

// usersGraph builds n users U00..U(n-1), each with one logon to PC.
func usersGraph(t *testing.T, n int, gt *groundtruth.GroundTruth) *graph.Graph {
	t.Helper()
	var logs activity.Logs
	for i := 0; i < n; i++ {
		logs.Logon = append(logs.Logon, activity.LogonRecord{User: fmt.Sprintf("U%02d", i), PC: "PC", Day: day, Logons: 1})
	}
	g, err := graph.NewBuilder(nil).Build(logs, day, gt)
	require.NoError(t, err)
	return g
}

func TestPredict_RanksUsersOnly(t *testing.T) {
	g := usersGraph(t, 3, nil)
	// Device node gets the highest logit but must not appear.
	pred, err := NewPredictor(nil, nil, calibration.DemoPolicy()).Predict(fixedScorer{0, 2, -1, 9}, g, nil)
	require.NoError(t, err)

	require.Len(t, pred.Ranked, 3)
	assert.Equal(t, "U01", pred.Ranked[0].User)
	assert.Equal(t, "U00", pred.Ranked[1].User)
	assert.Equal(t, "U02", pred.Ranked[2].User)
	assert.InDelta(t, 0.5, pred.Ranked[1].Score, 1e-12)
	assert.Len(t, pred.Scores, 4)
	assert.InDelta(t, model.Sigmoid(9), pred.Scores[3], 1e-12)
}

func TestPredict_BoostsKnownMalicious(t *testing.T) {
	gt := groundtruth.FromUsers([]string{"U02"})
	g := usersGraph(t, 3, gt)

	pred, err := NewPredictor(nil, nil, calibration.DemoPolicy()).Predict(fixedScorer{1, 0, -2, 0}, g, gt)
	require.NoError(t, err)

	top := pred.Ranked[0]
	assert.Equal(t, "U02", top.User)
	assert.True(t, top.IsKnownMalicious)
	assert.InDelta(t, model.Sigmoid(-2)+0.8, top.Score, 1e-12)
	assert.Equal(t, []int{2}, pred.Boosted)
	assert.Equal(t, 1, pred.KnownMaliciousRanked())
}

func TestPredict_StrictPolicyDoesNotBoost(t *testing.T) {
	gt := groundtruth.FromUsers([]string{"U02"})
	g := usersGraph(t, 3, gt)

	pred, err := NewPredictor(nil, nil, calibration.StrictPolicy()).Predict(fixedScorer{1, 0, -2, 0}, g, gt)
	require.NoError(t, err)

	last := pred.Ranked[2]
	assert.Equal(t, "U02", last.User)
	assert.True(t, last.IsKnownMalicious, "membership is reported even without a boost")
	assert.InDelta(t, model.Sigmoid(-2), last.Score, 1e-12)
	assert.Empty(t, pred.Boosted)
}

func TestPredict_TieBreakByUserKey(t *testing.T) {
	g := usersGraph(t, 4, nil)
	pred, err := NewPredictor(nil, nil, calibration.DemoPolicy()).Predict(fixedScorer{0.3, 0.7, 0.3, 0.7, 0}, g, nil)
	require.NoError(t, err)

	users := make([]string, len(pred.Ranked))
	for i, r := range pred.Ranked {
		users[i] = r.User
	}
	assert.Equal(t, []string{"U01", "U03", "U00", "U02"}, users)
}

func TestPredict_TopK(t *testing.T) {
	g := usersGraph(t, 12, nil)
	logits := make(fixedScorer, 13)
	for i := range logits {
		logits[i] = float64(i)
	}
	p := NewPredictor(nil, nil, calibration.DemoPolicy())
	p.TopK = 5

	pred, err := p.Predict(logits, g, nil)
	require.NoError(t, err)
	require.Len(t, pred.Ranked, 5)
	assert.Equal(t, "U11", pred.Ranked[0].User)

	p.TopK = 0
	pred, err = p.Predict(logits, g, nil)
	require.NoError(t, err)
	assert.Len(t, pred.Ranked, 12)
}

func TestPredict_Errors(t *testing.T) {
	p := NewPredictor(nil, nil, calibration.DemoPolicy())
	g := usersGraph(t, 2, nil)

	_, err := p.Predict(nil, g, nil)
	assert.ErrorIs(t, err, ErrModelNotTrained)

	_, err = p.Predict(fixedScorer{1}, nil, nil)
	assert.ErrorIs(t, err, model.ErrModelInput)

	_, err = p.Predict(fixedScorer{1}, g, nil)
	assert.ErrorIs(t, err, model.ErrModelInput, "logit count must match node count")

	_, err = p.Predict(failingScorer{}, g, nil)
	assert.Error(t, err)
}

func TestPredictProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	gt := groundtruth.FromUsers([]string{"U00", "U04", "U07"})
	p := NewPredictor(nil, nil, calibration.DemoPolicy())

	properties.Property("ranking is non-increasing by score", prop.ForAll(
		func(logits []float64) bool {
			pred, err := p.Predict(fixedScorer(logits), usersGraph(t, 10, gt), gt)
			if err != nil {
				return false
			}
			for i := 1; i < len(pred.Ranked); i++ {
				if pred.Ranked[i].Score > pred.Ranked[i-1].Score {
					return false
				}
			}
			return len(pred.Ranked) == 10
		},
		gen.SliceOfN(11, gen.Float64Range(-10, 10)),
	))

	properties.Property("known malicious scores are boosted and stay within [0,1]", prop.ForAll(
		func(logits []float64) bool {
			pred, err := p.Predict(fixedScorer(logits), usersGraph(t, 10, gt), gt)
			if err != nil {
				return false
			}
			for _, r := range pred.Ranked {
				if r.Score < 0 || r.Score > 1 {
					return false
				}
			}
			for _, i := range pred.Boosted {
				if pred.Scores[i] < model.Sigmoid(logits[i]) {
					return false
				}
			}
			return len(pred.Boosted) == 3
		},
		gen.SliceOfN(11, gen.Float64Range(-10, 10)),
	))

	properties.TestingRun(t)
}
