package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-insider/pkg/activity"
)

// Day-aggregated activity files.
const (
	LogonFile  = "logon_edges_day.csv"
	DeviceFile = "device_edges_day.csv"
	HTTPFile   = "http_edges_day.csv"
)

var errBadValue = errors.New("bad value")

// row gives named access to one CSV record.
type row struct {
	fields []string
	cols   map[string]int
}

func (r row) str(name string) string {
	i := r.cols[name]
	if i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r row) count(name string) (int, error) {
	s := r.str(name)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadValue, name, s)
	}
	return int(f), nil
}

func (r row) day() (activity.Day, error) {
	d, err := activity.ParseDay(r.str("day"))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadValue, err)
	}
	return d, nil
}

// schema describes one activity file and how to decode its rows.
type schema[T any] struct {
	source  string
	file    string
	columns []string
	decode  func(row) (T, error)
}

var logonSchema = schema[activity.LogonRecord]{
	source:  "logon",
	file:    LogonFile,
	columns: []string{"user", "pc", "day", "logon", "logoff"},
	decode: func(r row) (activity.LogonRecord, error) {
		var rec activity.LogonRecord
		var err error
		rec.User, rec.PC = activity.NormalizeUser(r.str("user")), r.str("pc")
		if rec.Day, err = r.day(); err != nil {
			return rec, err
		}
		if rec.Logons, err = r.count("logon"); err != nil {
			return rec, err
		}
		rec.Logoffs, err = r.count("logoff")
		return rec, err
	},
}

var deviceSchema = schema[activity.DeviceRecord]{
	source:  "device",
	file:    DeviceFile,
	columns: []string{"user", "pc", "day", "connect", "disconnect"},
	decode: func(r row) (activity.DeviceRecord, error) {
		var rec activity.DeviceRecord
		var err error
		rec.User, rec.PC = activity.NormalizeUser(r.str("user")), r.str("pc")
		if rec.Day, err = r.day(); err != nil {
			return rec, err
		}
		if rec.Connects, err = r.count("connect"); err != nil {
			return rec, err
		}
		rec.Disconnects, err = r.count("disconnect")
		return rec, err
	},
}

var httpSchema = schema[activity.HTTPRecord]{
	source:  "http",
	file:    HTTPFile,
	columns: []string{"user", "domain", "day", "request_count"},
	decode: func(r row) (activity.HTTPRecord, error) {
		var rec activity.HTTPRecord
		var err error
		rec.User, rec.Domain = activity.NormalizeUser(r.str("user")), r.str("domain")
		if rec.Day, err = r.day(); err != nil {
			return rec, err
		}
		rec.Requests, err = r.count("request_count")
		return rec, err
	},
}

// readStats summarises one file read.
type readStats struct {
	Rows      int
	Skipped   int
	Truncated bool
}

// readCSV decodes up to limit rows (limit <= 0 reads everything). Rows past
// the limit are never looked at, so the result is a prefix of the file, not
// a sample. Undecodable rows are skipped and counted.
func readCSV[T any](r io.Reader, s schema[T], limit int) ([]T, readStats, error) {
	var stats readStats
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, stats, fmt.Errorf("%s: empty file", s.file)
	}
	if err != nil {
		return nil, stats, fmt.Errorf("%s: read header: %w", s.file, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		cols[name] = i
	}
	for _, c := range s.columns {
		if _, ok := cols[c]; !ok {
			return nil, stats, fmt.Errorf("%s: missing column %q", s.file, c)
		}
	}

	var out []T
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			stats.Skipped++
			continue
		}
		if err != nil {
			return nil, stats, fmt.Errorf("%s: %w", s.file, err)
		}
		if limit > 0 && len(out) >= limit {
			stats.Truncated = true
			break
		}
		rec, err := s.decode(row{fields: fields, cols: cols})
		if err != nil {
			stats.Skipped++
			continue
		}
		out = append(out, rec)
	}
	stats.Rows = len(out)
	return out, stats, nil
}
