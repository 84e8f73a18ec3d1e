package health

import (
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse returns the more severe of s and other.
func (s Status) Worse(other Status) Status {
	if other.severity() > s.severity() {
		return other
	}
	return s
}

// Probe selects which set of checks runs.
type Probe string

const (
	Liveness  Probe = "live"
	Readiness Probe = "ready"
)

// RunInfo identifies the analysis a check looked at.
type RunInfo struct {
	RunID        string `json:"run_id"`
	AnalysisDate string `json:"analysis_date,omitempty"`
	DataSource   string `json:"data_source,omitempty"`
	RankedUsers  int    `json:"ranked_users"`
}

// Check is the outcome of one named check.
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	Run         *RunInfo      `json:"run,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
}

// CheckFunc is a function that performs a health check
type CheckFunc func() Check

type namedCheck struct {
	name string
	fn   CheckFunc
}

// HealthChecker holds the checks for each probe in registration order.
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[Probe][]namedCheck
}

// Response is the outcome of one probe. Checks keep registration order.
type Response struct {
	Probe     Probe     `json:"probe"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}
