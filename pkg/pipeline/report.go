package pipeline

import (
	"github.com/dd0wney/cluso-insider/pkg/predict"
	"github.com/dd0wney/cluso-insider/pkg/visualization"
)

// Report statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Data sources recorded on a report.
const (
	SourceDataset   = "dataset"
	SourceSynthetic = "synthetic"
	SourceProvided  = "provided"
)

// Summary describes the analysed graph and the log coverage.
type Summary struct {
	TotalNodes          int    `json:"totalNodes"`
	TotalEdges          int    `json:"totalEdges"`
	UsersAnalyzed       int    `json:"usersAnalyzed"`
	KnownMaliciousCount int    `json:"knownMaliciousCount"`
	DateRangeStart      string `json:"dateRangeStart"`
	DateRangeEnd        string `json:"dateRangeEnd"`
	TotalDaysAvailable  int    `json:"totalDaysAvailable"`
}

// Report is the result of one run. A success report carries every field;
// an error report carries only Status, RunID and Message.
type Report struct {
	Status            string                     `json:"status"`
	RunID             string                     `json:"runId"`
	Message           string                     `json:"message,omitempty"`
	AnalysisDate      string                     `json:"analysisDate,omitempty"`
	DaySelection      string                     `json:"daySelection,omitempty"`
	DataSource        string                     `json:"dataSource,omitempty"`
	RankedUsers       []predict.Result           `json:"rankedUsers,omitempty"`
	GraphExport       *visualization.GraphExport `json:"graphExport,omitempty"`
	TrainingLossCurve []float64                  `json:"trainingLossCurve,omitempty"`
	Summary           *Summary                   `json:"summary,omitempty"`
}

// ErrorReport builds the failure form of a report.
func ErrorReport(runID string, err error) *Report {
	return &Report{Status: StatusError, RunID: runID, Message: err.Error()}
}

// OK reports whether the run succeeded.
func (r *Report) OK() bool { return r != nil && r.Status == StatusSuccess }
