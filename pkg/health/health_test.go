package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dd0wney/cluso-insider/pkg/pipeline"
	"github.com/dd0wney/cluso-insider/pkg/predict"
)

func TestNewHealthChecker(t *testing.T) {
	hc := NewHealthChecker()

	if hc == nil {
		t.Fatal("NewHealthChecker returned nil")
	}
	resp := hc.Run(Readiness)
	if resp.Status != StatusHealthy || len(resp.Checks) != 0 {
		t.Errorf("empty probe = %+v, want healthy with no checks", resp)
	}
}

func TestStatusWorse(t *testing.T) {
	tests := []struct {
		a, b, want Status
	}{
		{StatusHealthy, StatusHealthy, StatusHealthy},
		{StatusHealthy, StatusDegraded, StatusDegraded},
		{StatusDegraded, StatusHealthy, StatusDegraded},
		{StatusDegraded, StatusUnhealthy, StatusUnhealthy},
		{StatusUnhealthy, StatusDegraded, StatusUnhealthy},
	}
	for _, tt := range tests {
		if got := tt.a.Worse(tt.b); got != tt.want {
			t.Errorf("%s.Worse(%s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestProbesAreSeparated(t *testing.T) {
	hc := NewHealthChecker()

	readyCalled := false
	hc.Register(Readiness, "ready", func() Check {
		readyCalled = true
		return Check{Status: StatusHealthy}
	})
	hc.Register(Liveness, "process", AliveCheck)

	resp := hc.Run(Liveness)
	if readyCalled {
		t.Error("readiness check should not run for liveness")
	}
	if len(resp.Checks) != 1 || resp.Checks[0].Name != "process" {
		t.Errorf("liveness checks = %+v", resp.Checks)
	}
	if resp.Probe != Liveness {
		t.Errorf("Probe = %s, want live", resp.Probe)
	}

	hc.Run(Readiness)
	if !readyCalled {
		t.Error("readiness check was not called")
	}
}

func TestRegisterKeepsOrderAndReplaces(t *testing.T) {
	hc := NewHealthChecker()
	hc.Register(Readiness, "analysis", func() Check { return Check{Status: StatusUnhealthy} })
	hc.Register(Readiness, "ground_truth_db", func() Check { return Check{Status: StatusHealthy} })
	hc.Register(Readiness, "analysis", func() Check { return Check{Status: StatusDegraded} })

	resp := hc.Run(Readiness)
	if len(resp.Checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(resp.Checks))
	}
	if resp.Checks[0].Name != "analysis" || resp.Checks[1].Name != "ground_truth_db" {
		t.Errorf("order = %s, %s", resp.Checks[0].Name, resp.Checks[1].Name)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("Status = %s, want degraded from the replacement", resp.Status)
	}
}

func TestWorstStatusWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for i, s := range tt.statuses {
				status := s
				hc.Register(Readiness, string(rune('a'+i)), func() Check { return Check{Status: status} })
			}
			if got := hc.Run(Readiness).Status; got != tt.want {
				t.Errorf("Status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReportCheck(t *testing.T) {
	tests := []struct {
		name    string
		report  *pipeline.Report
		want    Status
		wantRun bool
	}{
		{"no run", nil, StatusUnhealthy, false},
		{"error", &pipeline.Report{Status: pipeline.StatusError, RunID: "r1", Message: "no activity data"}, StatusUnhealthy, true},
		{"synthetic", &pipeline.Report{Status: pipeline.StatusSuccess, DataSource: pipeline.SourceSynthetic}, StatusDegraded, true},
		{"dataset", &pipeline.Report{Status: pipeline.StatusSuccess, DataSource: pipeline.SourceDataset, AnalysisDate: "2010-07-21"}, StatusHealthy, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := ReportCheck(func() *pipeline.Report { return tt.report })()
			if check.Status != tt.want {
				t.Errorf("Status = %s, want %s (%s)", check.Status, tt.want, check.Message)
			}
			if (check.Run != nil) != tt.wantRun {
				t.Errorf("Run = %+v, wantRun %v", check.Run, tt.wantRun)
			}
		})
	}
}

func TestReportCheckRunInfo(t *testing.T) {
	report := &pipeline.Report{
		Status:       pipeline.StatusSuccess,
		RunID:        "run-7",
		AnalysisDate: "2010-07-21",
		DataSource:   pipeline.SourceDataset,
		RankedUsers:  make([]predict.Result, 4),
	}
	check := ReportCheck(func() *pipeline.Report { return report })()

	want := RunInfo{RunID: "run-7", AnalysisDate: "2010-07-21", DataSource: "dataset", RankedUsers: 4}
	if check.Run == nil || *check.Run != want {
		t.Errorf("Run = %+v, want %+v", check.Run, want)
	}
}

func TestDatabaseCheck(t *testing.T) {
	ok := DatabaseCheck(func(context.Context) error { return nil }, time.Second)()
	if ok.Status != StatusHealthy {
		t.Errorf("Status = %s, want healthy", ok.Status)
	}

	down := DatabaseCheck(func(context.Context) error { return errors.New("connection refused") }, time.Second)()
	if down.Status != StatusUnhealthy || down.Message != "connection refused" {
		t.Errorf("Unexpected check: %+v", down)
	}
}

func TestReadinessHandler(t *testing.T) {
	var last *pipeline.Report
	hc := NewHealthChecker()
	hc.Register(Readiness, "analysis", ReportCheck(func() *pipeline.Report { return last }))

	rec := httptest.NewRecorder()
	hc.Handler(Readiness)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Code = %d before any run, want 503", rec.Code)
	}

	last = &pipeline.Report{Status: pipeline.StatusSuccess, RunID: "r2", DataSource: pipeline.SourceSynthetic}
	rec = httptest.NewRecorder()
	hc.Handler(Readiness)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Code = %d for degraded, want 200", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("Status = %s, want degraded", resp.Status)
	}
	if len(resp.Checks) != 1 || resp.Checks[0].Run == nil || resp.Checks[0].Run.RunID != "r2" {
		t.Errorf("Checks = %+v", resp.Checks)
	}
}

func TestLivenessHandler(t *testing.T) {
	hc := NewHealthChecker()
	hc.Register(Liveness, "process", AliveCheck)

	rec := httptest.NewRecorder()
	hc.Handler(Liveness)(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Code = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
