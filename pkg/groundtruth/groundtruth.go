// Package groundtruth loads the externally supplied answer rows that name
// known-malicious users and the days their activity occurred.
package groundtruth

import (
	"sort"

	"github.com/dd0wney/cluso-insider/pkg/activity"
)

// GroundTruth is the union of every answer source of a run. It is built once
// and only read afterwards.
type GroundTruth struct {
	MaliciousUsers map[string]struct{}
	MaliciousDays  activity.DaySet
}

// New returns an empty ground truth.
func New() *GroundTruth {
	return &GroundTruth{
		MaliciousUsers: make(map[string]struct{}),
		MaliciousDays:  make(activity.DaySet),
	}
}

// FromUsers builds a ground truth from literal users and days.
func FromUsers(users []string, days ...activity.Day) *GroundTruth {
	gt := New()
	for _, u := range users {
		gt.AddUser(u)
	}
	for _, d := range days {
		gt.MaliciousDays.Add(d)
	}
	return gt
}

// AddUser records a malicious user after normalization. Empty names are ignored.
func (g *GroundTruth) AddUser(user string) bool {
	user = activity.NormalizeUser(user)
	if user == "" {
		return false
	}
	g.MaliciousUsers[user] = struct{}{}
	return true
}

// IsMaliciousUser reports whether key names a known-malicious user. A nil
// ground truth knows no one.
func (g *GroundTruth) IsMaliciousUser(key string) bool {
	if g == nil {
		return false
	}
	_, ok := g.MaliciousUsers[key]
	return ok
}

// Days returns the malicious-day set, never nil.
func (g *GroundTruth) Days() activity.DaySet {
	if g == nil || g.MaliciousDays == nil {
		return activity.DaySet{}
	}
	return g.MaliciousDays
}

// Merge adds every user and day of other.
func (g *GroundTruth) Merge(other *GroundTruth) {
	if other == nil {
		return
	}
	for u := range other.MaliciousUsers {
		g.MaliciousUsers[u] = struct{}{}
	}
	g.MaliciousDays.Union(other.MaliciousDays)
}

func (g *GroundTruth) UserCount() int {
	if g == nil {
		return 0
	}
	return len(g.MaliciousUsers)
}

func (g *GroundTruth) DayCount() int {
	if g == nil {
		return 0
	}
	return len(g.MaliciousDays)
}

// Empty reports whether neither users nor days are known.
func (g *GroundTruth) Empty() bool {
	return g.UserCount() == 0 && g.DayCount() == 0
}

// SortedUsers returns the malicious users in lexical order.
func (g *GroundTruth) SortedUsers() []string {
	if g == nil {
		return nil
	}
	out := make([]string, 0, len(g.MaliciousUsers))
	for u := range g.MaliciousUsers {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
