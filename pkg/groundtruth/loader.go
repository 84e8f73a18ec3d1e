package groundtruth

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/dd0wney/cluso-insider/pkg/logging"
	"github.com/dd0wney/cluso-insider/pkg/metrics"
)

// Answer-row column convention: date at index 2, user at index 3.
const (
	DateColumn = 2
	UserColumn = 3
	MinColumns = 4
)

// Loader accumulates answer rows from any number of sources.
type Loader struct {
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewLoader creates a loader. A nil logger discards output; a nil registry
// records nothing.
func NewLoader(logger logging.Logger, reg *metrics.Registry) *Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Loader{
		logger:  logger.With(logging.Component("groundtruth")),
		metrics: reg,
	}
}

// SourceStats describes what one source contributed.
type SourceStats struct {
	Source   string
	Accepted int
	Skipped  int
	Failed   bool
}

// Load reads every source and returns the union of their users and days.
// It never fails: unreadable sources and rows are skipped and logged, and
// with no usable source the result is simply empty.
func (l *Loader) Load(ctx context.Context, sources ...RowSource) *GroundTruth {
	gt := New()
	for _, src := range sources {
		if ctx.Err() != nil {
			l.logger.Warn("ground-truth loading interrupted", logging.Error(ctx.Err()))
			break
		}
		stats := l.loadSource(ctx, src, gt)
		l.metrics.RecordGroundTruthRows(stats.Accepted, stats.Skipped)
	}

	l.logger.Info("ground truth loaded",
		logging.Int("malicious_users", gt.UserCount()),
		logging.Int("malicious_days", gt.DayCount()),
	)
	l.logger.Debug("malicious users", logging.Strings("users", gt.SortedUsers()))
	return gt
}

func (l *Loader) loadSource(ctx context.Context, src RowSource, gt *GroundTruth) SourceStats {
	stats := SourceStats{Source: src.Name()}
	log := l.logger.With(logging.Source(src.Name()))

	reader, err := src.Open(ctx)
	if err != nil {
		stats.Failed = true
		log.Warn("answer source unavailable, skipping", logging.Error(err))
		return stats
	}
	defer reader.Close()

	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) || errors.Is(err, ErrBadRow) {
				stats.Skipped++
				continue
			}
			stats.Failed = true
			log.Warn("answer source aborted", logging.Error(err), logging.Int("accepted", stats.Accepted))
			break
		}

		if applyRow(row, gt) {
			stats.Accepted++
		} else {
			stats.Skipped++
		}
	}

	log.Debug("answer source read",
		logging.Int("accepted", stats.Accepted),
		logging.Int("skipped", stats.Skipped),
	)
	return stats
}

// applyRow merges one answer row. The user is kept even when the date does
// not parse; only the day is dropped in that case.
func applyRow(row []string, gt *GroundTruth) bool {
	if len(row) < MinColumns {
		return false
	}
	if !gt.AddUser(row[UserColumn]) {
		return false
	}
	if day, ok := ParseDate(row[DateColumn]); ok {
		gt.MaliciousDays.Add(day)
	}
	return true
}
