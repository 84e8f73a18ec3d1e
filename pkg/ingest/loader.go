// Package ingest loads the three day-aggregated activity logs from a
// directory or object store, and can generate a synthetic stand-in dataset.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-insider/pkg/activity"
	"github.com/dd0wney/cluso-insider/pkg/logging"
	"github.com/dd0wney/cluso-insider/pkg/metrics"
)

// ErrDatasetMissing is returned when an activity file does not exist.
var ErrDatasetMissing = errors.New("dataset file missing")

// Limits caps the rows read per source. Zero means unbounded.
type Limits struct {
	Logon  int `mapstructure:"logon" yaml:"logon" validate:"gte=0"`
	Device int `mapstructure:"device" yaml:"device" validate:"gte=0"`
	HTTP   int `mapstructure:"http" yaml:"http" validate:"gte=0"`
}

// DefaultLimits bounds memory on the full CERT-sized files.
func DefaultLimits() Limits {
	return Limits{Logon: 50000, Device: 50000, HTTP: 20000}
}

// Loader reads the three activity files through an Opener.
type Loader struct {
	opener  Opener
	limits  Limits
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewLoader creates a loader. Logger and registry may be nil.
func NewLoader(opener Opener, limits Limits, logger logging.Logger, reg *metrics.Registry) *Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Loader{
		opener:  opener,
		limits:  limits,
		logger:  logger.With(logging.Component("ingest")),
		metrics: reg,
	}
}

// Load reads all three files concurrently. Any missing or unreadable file
// fails the whole load; the caller decides whether to substitute data.
func (l *Loader) Load(ctx context.Context) (activity.Logs, error) {
	var logs activity.Logs
	l.logger.Info("loading activity logs", logging.Path(l.opener.Location()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logs.Logon, err = loadFile(ctx, l, logonSchema, l.limits.Logon)
		return err
	})
	g.Go(func() error {
		var err error
		logs.Device, err = loadFile(ctx, l, deviceSchema, l.limits.Device)
		return err
	})
	g.Go(func() error {
		var err error
		logs.HTTP, err = loadFile(ctx, l, httpSchema, l.limits.HTTP)
		return err
	})
	if err := g.Wait(); err != nil {
		return activity.Logs{}, err
	}
	return logs, nil
}

func loadFile[T any](ctx context.Context, l *Loader, s schema[T], limit int) ([]T, error) {
	rc, err := l.opener.Open(ctx, s.file)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.source, err)
	}
	defer rc.Close()

	out, stats, err := readCSV(rc, s, limit)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.source, err)
	}

	l.metrics.RecordIngest(s.source, stats.Rows, stats.Truncated)
	fields := []logging.Field{
		logging.Source(s.source),
		logging.Count(stats.Rows),
		logging.Int("skipped", stats.Skipped),
	}
	if stats.Truncated {
		l.logger.Warn("row cap reached, keeping file prefix", append(fields, logging.Int("limit", limit))...)
	} else {
		l.logger.Info("loaded activity file", fields...)
	}
	return out, nil
}
