// Package dayselect picks the single calendar day an analysis run looks at.
package dayselect

import (
	"errors"

	"github.com/dd0wney/cluso-insider/pkg/activity"
)

// ErrNoDataAvailable is returned when the logs contain no day at all.
var ErrNoDataAvailable = errors.New("no days available in activity logs")

// Strategy names the rule that produced a selection.
type Strategy string

const (
	// StrategyMaliciousDay: the earliest log day that is also a known malicious day.
	StrategyMaliciousDay Strategy = "malicious_day"
	// StrategyNearestMalicious: the log day closest to the earliest malicious day.
	StrategyNearestMalicious Strategy = "nearest_malicious"
	// StrategyLatest: no malicious days known, the latest log day.
	StrategyLatest Strategy = "latest"
)

// Selection is the chosen day and how it was chosen.
type Selection struct {
	Day      activity.Day
	Strategy Strategy
	// Target is the malicious day the nearest-day rule aimed at.
	Target activity.Day
	// Candidates counts log days that are also malicious days.
	Candidates int
}

// Select applies, in order: earliest day of available ∩ malicious; the
// available day nearest to min(malicious), earlier day on ties; the latest
// available day.
func Select(available, malicious activity.DaySet) (Selection, error) {
	if available.Len() == 0 {
		return Selection{}, ErrNoDataAvailable
	}

	overlap := available.Intersect(malicious)
	if first, ok := overlap.Min(); ok {
		return Selection{
			Day:        first,
			Strategy:   StrategyMaliciousDay,
			Target:     first,
			Candidates: overlap.Len(),
		}, nil
	}

	if target, ok := malicious.Min(); ok {
		return Selection{
			Day:      nearest(available.Sorted(), target),
			Strategy: StrategyNearestMalicious,
			Target:   target,
		}, nil
	}

	latest, _ := available.Max()
	return Selection{Day: latest, Strategy: StrategyLatest}, nil
}

// nearest scans ascending days and only replaces on a strictly smaller
// distance, so the earlier day wins a tie.
func nearest(sorted []activity.Day, target activity.Day) activity.Day {
	best := sorted[0]
	bestDist := best.Distance(target)
	for _, d := range sorted[1:] {
		if dist := d.Distance(target); dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best
}
