package main

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-insider/pkg/pipeline"
	"github.com/dd0wney/cluso-insider/pkg/predict"
)

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", sparkline(nil))
	assert.Equal(t, "▁▁▁", sparkline([]float64{0.5, 0.5, 0.5}))
	assert.Equal(t, "█▄▁", sparkline([]float64{1, 0.5, 0}))
}

func TestRankingRows(t *testing.T) {
	rows := rankingRows([]predict.Result{
		{User: "RCW0822", Score: 0.91234, IsKnownMalicious: true},
		{User: "ABC0001", Score: 0.5},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "RCW0822", "0.9123", "yes"}, []string(rows[0]))
	assert.Equal(t, "", rows[1][3])
}

func TestModelShowsReport(t *testing.T) {
	m := initialModel(nil)
	assert.Contains(t, m.View(), "Running analysis")

	report := &pipeline.Report{
		Status:            pipeline.StatusSuccess,
		AnalysisDate:      "2010-07-21",
		RankedUsers:       []predict.Result{{User: "RCW0822", Score: 0.9, IsKnownMalicious: true}},
		TrainingLossCurve: []float64{0.7, 0.6},
		Summary:           &pipeline.Summary{TotalNodes: 3},
	}
	next, _ := m.Update(reportMsg{report: report})
	m = next.(model)
	assert.Contains(t, m.View(), "RCW0822")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(model)
	assert.Equal(t, summaryView, m.currentView)
	assert.Contains(t, m.View(), "2010-07-21")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(model)
	assert.Equal(t, rankingView, m.currentView)
}

func TestModelShowsFailure(t *testing.T) {
	m := initialModel(nil)
	next, _ := m.Update(reportMsg{report: &pipeline.Report{Status: pipeline.StatusError, Message: "no activity data"}})
	assert.Contains(t, next.(model).View(), "no activity data")
}

func TestRunReturnsExitCodeOnBadConfig(t *testing.T) {
	args := os.Args
	t.Cleanup(func() { os.Args = args })
	os.Args = []string{"threatgraph-tui", "-config", filepath.Join(t.TempDir(), "absent.yaml")}

	assert.Equal(t, 2, run())
}
