package groundtruth

import (
	"strings"
	"time"

	"github.com/dd0wney/cluso-insider/pkg/activity"
)

// answerLayout is the timestamp shape of the CERT answer files.
const answerLayout = "01/02/2006"

// fallbackLayouts are tried in order when a value is not an answer-file timestamp.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate reads the date column of an answer row. "MM/DD/YYYY HH:MM:SS"
// keeps only the date portion; anything else goes through the ISO-like
// fallback layouts.
func ParseDate(raw string) (activity.Day, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, "/") && strings.Contains(s, " ") {
		datePart, _, _ := strings.Cut(s, " ")
		if t, err := time.Parse(answerLayout, datePart); err == nil {
			return activity.DayOf(t), true
		}
		if t, err := time.Parse("1/2/2006", datePart); err == nil {
			return activity.DayOf(t), true
		}
		return 0, false
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return activity.DayOf(t), true
		}
	}
	return 0, false
}
