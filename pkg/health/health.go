// Package health exposes liveness and readiness checks for long-running
// analyzer processes.
package health

import (
	"time"
)

// NewHealthChecker creates a checker with no checks; an empty probe is healthy.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[Probe][]namedCheck)}
}

// Register adds check under name for probe, replacing an earlier check of
// the same name in place.
func (hc *HealthChecker) Register(probe Probe, name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	list := hc.checks[probe]
	for i := range list {
		if list[i].name == name {
			list[i].fn = check
			return
		}
	}
	hc.checks[probe] = append(list, namedCheck{name: name, fn: check})
}

// Run executes every check of probe. The worst status wins.
func (hc *HealthChecker) Run(probe Probe) Response {
	hc.mu.RLock()
	list := append([]namedCheck(nil), hc.checks[probe]...)
	hc.mu.RUnlock()

	response := Response{
		Probe:     probe,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make([]Check, 0, len(list)),
	}
	for _, nc := range list {
		start := time.Now()
		check := nc.fn()
		check.Name = nc.name
		check.LastChecked = start
		check.Duration = time.Since(start)

		response.Checks = append(response.Checks, check)
		response.Status = response.Status.Worse(check.Status)
	}
	return response
}
