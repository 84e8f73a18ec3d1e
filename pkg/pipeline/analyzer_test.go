package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-insider/pkg/activity"
	"github.com/dd0wney/cluso-insider/pkg/calibration"
	"github.com/dd0wney/cluso-insider/pkg/dayselect"
	"github.com/dd0wney/cluso-insider/pkg/graph"
	"github.com/dd0wney/cluso-insider/pkg/groundtruth"
	"github.com/dd0wney/cluso-insider/pkg/ingest"
	"github.com/dd0wney/cluso-insider/pkg/metrics"
)

type staticLogs struct {
	logs activity.Logs
	err  error
}

func (s staticLogs) Load(context.Context) (activity.Logs, error) { return s.logs, s.err }

var (
	d1 = activity.MustParseDay("2010-07-20")
	d2 = activity.MustParseDay("2010-07-21")
)

func smallLogs() activity.Logs {
	return activity.Logs{
		Logon: []activity.LogonRecord{
			{User: "A", PC: "PC1", Day: d2, Logons: 2, Logoffs: 2},
			{User: "B", PC: "PC1", Day: d2, Logons: 1, Logoffs: 1},
			{User: "C", PC: "PC2", Day: d1, Logons: 1, Logoffs: 1},
		},
		HTTP: []activity.HTTPRecord{
			{User: "A", Domain: "domain1", Day: d2, Requests: 9},
			{User: "C", Domain: "domain1", Day: d2, Requests: 2},
		},
	}
}

func TestAnalyze_Success(t *testing.T) {
	reg := metrics.NewRegistry()
	a := NewAnalyzer(DefaultOptions(), nil, nil, nil, reg)
	gt := groundtruth.FromUsers([]string{"A"}, d2)

	report, err := a.Analyze(context.Background(), smallLogs(), gt)
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "2010-07-21", report.AnalysisDate)
	assert.Equal(t, string(dayselect.StrategyMaliciousDay), report.DaySelection)
	assert.Equal(t, SourceProvided, report.DataSource)
	assert.Len(t, report.TrainingLossCurve, 25)

	require.Len(t, report.RankedUsers, 3)
	assert.Equal(t, "A", report.RankedUsers[0].User, "boosted known malicious user ranks first")
	assert.True(t, report.RankedUsers[0].IsKnownMalicious)
	for i := 1; i < len(report.RankedUsers); i++ {
		assert.LessOrEqual(t, report.RankedUsers[i].Score, report.RankedUsers[i-1].Score)
	}

	require.NotNil(t, report.Summary)
	assert.Equal(t, Summary{
		TotalNodes:          5,
		TotalEdges:          4,
		UsersAnalyzed:       3,
		KnownMaliciousCount: 1,
		DateRangeStart:      "2010-07-20",
		DateRangeEnd:        "2010-07-21",
		TotalDaysAvailable:  2,
	}, *report.Summary)

	require.NotNil(t, report.GraphExport)
	assert.Equal(t, report.Summary.TotalNodes, report.GraphExport.Stats.TotalNodes)
	assert.Equal(t, report.Summary.TotalEdges, report.GraphExport.Stats.TotalEdges)
	assert.Equal(t, 1, report.GraphExport.Stats.MaliciousUserCount)
}

func TestAnalyze_NoData(t *testing.T) {
	a := NewAnalyzer(DefaultOptions(), nil, nil, nil, nil)

	_, err := a.Analyze(context.Background(), activity.Logs{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, dayselect.ErrNoDataAvailable)
	assert.Equal(t, StageSelectDay, StageOf(err))
}

func TestAnalyze_EmptyGraph(t *testing.T) {
	// The only record on the selected day has no device key, so no edge survives.
	logs := activity.Logs{Logon: []activity.LogonRecord{{User: "A", PC: "", Day: d1, Logons: 1}}}
	a := NewAnalyzer(DefaultOptions(), nil, nil, nil, nil)

	_, err := a.Analyze(context.Background(), logs, nil)
	assert.ErrorIs(t, err, graph.ErrEmptyGraph)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageBuild, se.Stage)
	assert.True(t, se.HasDay)
	assert.Equal(t, d1, se.Day)
}

func TestAnalyze_TrainingRespectsCallerDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalyzer(DefaultOptions(), nil, nil, nil, nil).Analyze(ctx, smallLogs(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageTrain, StageOf(err))
}

func TestAnalyze_StrictPolicy(t *testing.T) {
	opts := DefaultOptions()
	opts.Policy = calibration.StrictPolicy()
	gt := groundtruth.FromUsers([]string{"B"})

	report, err := NewAnalyzer(opts, nil, nil, nil, nil).Analyze(context.Background(), smallLogs(), gt)
	require.NoError(t, err)
	for _, r := range report.RankedUsers {
		assert.Less(t, r.Score, 1.0)
	}
}

func TestRun_UsesLoadedData(t *testing.T) {
	src := groundtruth.SliceSource{Label: "answers", Rows: [][]string{
		{"logon", "{X1}", "07/21/2010 10:12:00", "C", "PC2"},
	}}
	a := NewAnalyzer(DefaultOptions(), staticLogs{logs: smallLogs()}, []groundtruth.RowSource{src}, nil, nil)

	report := a.Run(context.Background())
	require.True(t, report.OK(), report.Message)
	assert.Equal(t, SourceDataset, report.DataSource)
	assert.Equal(t, "2010-07-21", report.AnalysisDate)
	assert.Equal(t, "C", report.RankedUsers[0].User)
}

func TestRun_SyntheticFallback(t *testing.T) {
	reg := metrics.NewRegistry()
	a := NewAnalyzer(DefaultOptions(), staticLogs{err: ingest.ErrDatasetMissing}, nil, nil, reg)

	report := a.Run(context.Background())
	require.True(t, report.OK(), report.Message)
	assert.Equal(t, SourceSynthetic, report.DataSource)
	assert.Equal(t, 3, report.Summary.KnownMaliciousCount)
	assert.NotEqual(t, string(dayselect.StrategyLatest), report.DaySelection)
	assert.Equal(t, report.Summary.TotalNodes, report.GraphExport.Stats.TotalNodes)
	assert.NotEmpty(t, report.RankedUsers)
}

func TestRun_EmptyLogsFallBack(t *testing.T) {
	report := NewAnalyzer(DefaultOptions(), staticLogs{}, nil, nil, nil).Run(context.Background())
	require.True(t, report.OK(), report.Message)
	assert.Equal(t, SourceSynthetic, report.DataSource)
}

func TestRun_ErrorReportWithoutFallback(t *testing.T) {
	opts := DefaultOptions()
	opts.SyntheticFallback = false

	report := NewAnalyzer(opts, staticLogs{err: ingest.ErrDatasetMissing}, nil, nil, nil).Run(context.Background())
	assert.False(t, report.OK())
	assert.Equal(t, StatusError, report.Status)
	assert.Contains(t, report.Message, "dataset file missing")
	assert.Nil(t, report.Summary)
	assert.Nil(t, report.RankedUsers)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.ElementsMatch(t, []string{"status", "runId", "message"}, keys(decoded))
}

func TestReportJSONShape(t *testing.T) {
	report, err := NewAnalyzer(DefaultOptions(), nil, nil, nil, nil).
		Analyze(context.Background(), smallLogs(), groundtruth.FromUsers([]string{"A"}))
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, k := range []string{"status", "analysisDate", "rankedUsers", "graphExport", "trainingLossCurve", "summary"} {
		assert.Contains(t, decoded, k)
	}
	summary := decoded["summary"].(map[string]any)
	for _, k := range []string{"totalNodes", "totalEdges", "usersAnalyzed", "knownMaliciousCount", "dateRangeStart", "dateRangeEnd"} {
		assert.Contains(t, summary, k)
	}
}

func TestStageError(t *testing.T) {
	cause := errors.New("no edges")
	err := NewError(StageBuild).Day(d1).Context("retry another day").Cause(cause).Err()
	assert.Equal(t, "build_graph 2010-07-20 (retry another day): no edges", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "train: boom", NewError(StageTrain).Cause(errors.New("boom")).Build().Error())
	assert.Equal(t, "", StageOf(cause))
	assert.False(t, NewError(StageLoad).Cause(cause).Build().Is(nil))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
