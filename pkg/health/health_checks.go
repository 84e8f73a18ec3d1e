package health

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-insider/pkg/pipeline"
)

// AliveCheck always reports healthy.
func AliveCheck() Check {
	return Check{Status: StatusHealthy}
}

// ReportCheck reflects the most recent analysis. No report yet and an error
// report are unhealthy; a run on synthetic data is degraded.
func ReportCheck(last func() *pipeline.Report) CheckFunc {
	return func() Check {
		report := last()
		if report == nil {
			return Check{Status: StatusUnhealthy, Message: "no analysis has completed"}
		}

		check := Check{Run: &RunInfo{RunID: report.RunID}}
		if !report.OK() {
			check.Status = StatusUnhealthy
			check.Message = report.Message
			return check
		}

		check.Run.AnalysisDate = report.AnalysisDate
		check.Run.DataSource = report.DataSource
		check.Run.RankedUsers = len(report.RankedUsers)
		check.Status = StatusHealthy
		if report.DataSource == pipeline.SourceSynthetic {
			check.Status = StatusDegraded
			check.Message = "analysis ran on the synthetic dataset"
		}
		return check
	}
}

// DatabaseCheck pings the ground-truth database.
func DatabaseCheck(ping func(ctx context.Context) error, timeout time.Duration) CheckFunc {
	return func() Check {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Status: StatusHealthy, Message: "Connected"}
	}
}
