package groundtruth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-insider/pkg/activity"
	"github.com/dd0wney/cluso-insider/pkg/logging"
	"github.com/dd0wney/cluso-insider/pkg/metrics"
	dto "github.com/prometheus/client_model/go"
)

func answerRow(date, user string) []string {
	return []string{"logon", "{X1Y2}", date, user, "PC-1234", "Logon"}
}

func TestLoader_MergesAcrossSources(t *testing.T) {
	first := SliceSource{Label: "r3.2-1", Rows: [][]string{
		answerRow("07/22/2010 07:33:23", "ACM2278"),
		answerRow("07/23/2010 01:12:44", " ACM2278 "),
	}}
	second := SliceSource{Label: "r3.2-2", Rows: [][]string{
		answerRow("08/12/2010 16:10:00", "CMP2946"),
		answerRow("07/22/2010 09:00:00", "ACM2278"),
	}}

	gt := NewLoader(nil, nil).Load(context.Background(), first, second)

	assert.Equal(t, []string{"ACM2278", "CMP2946"}, gt.SortedUsers())
	assert.Equal(t, []activity.Day{
		activity.MustParseDay("2010-07-22"),
		activity.MustParseDay("2010-07-23"),
		activity.MustParseDay("2010-08-12"),
	}, gt.MaliciousDays.Sorted())
}

func TestLoader_SkipsMalformedRows(t *testing.T) {
	src := SliceSource{Label: "mixed", Rows: [][]string{
		{"too", "short"},
		{"logon", "id", "07/22/2010 07:33:23"},
		answerRow("not a date", "KEPT0001"),
		answerRow("07/22/2010 07:33:23", "   "),
		answerRow("07/30/2010 07:33:23", "GOOD0002"),
	}}

	reg := metrics.NewRegistry()
	gt := NewLoader(nil, reg).Load(context.Background(), src)

	assert.Equal(t, []string{"GOOD0002", "KEPT0001"}, gt.SortedUsers())
	assert.Equal(t, []activity.Day{activity.MustParseDay("2010-07-30")}, gt.MaliciousDays.Sorted())

	c, err := reg.GroundTruthRowsTotal.GetMetricWithLabelValues("skipped")
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	assert.Equal(t, float64(3), m.Counter.GetValue())
}

func TestLoader_NoSourcesYieldsEmptyGroundTruth(t *testing.T) {
	gt := NewLoader(nil, nil).Load(context.Background())
	require.NotNil(t, gt)
	assert.True(t, gt.Empty())
	assert.NotNil(t, gt.MaliciousUsers)
	assert.NotNil(t, gt.MaliciousDays)
}

func TestLoader_MissingFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r3.2-1.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"logon,{A},07/22/2010 07:33:23,ACM2278,PC-1,Logon\n"+
			"garbage\n"+
			"http,{C},07/24/2010 10:10:10,ACM2278,PC-1,http://x\n",
	), 0o644))

	gt := NewLoader(nil, nil).Load(context.Background(),
		FileSource(filepath.Join(dir, "r3.2-0.csv")),
		FileSource(path),
	)

	assert.Equal(t, []string{"ACM2278"}, gt.SortedUsers())
	assert.True(t, gt.MaliciousDays.Has(activity.MustParseDay("2010-07-22")))
}

func TestFileSource_NotFound(t *testing.T) {
	_, err := FileSource(filepath.Join(t.TempDir(), "absent.csv")).Open(context.Background())
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

type failingReader struct {
	rows [][]string
	pos  int
	err  error
}

func (f *failingReader) Next() ([]string, error) {
	if f.pos < len(f.rows) {
		f.pos++
		return f.rows[f.pos-1], nil
	}
	return nil, f.err
}

func (f *failingReader) Close() error { return nil }

type readerSource struct {
	reader RowReader
}

func (s readerSource) Name() string                            { return "flaky" }
func (s readerSource) Open(context.Context) (RowReader, error) { return s.reader, nil }

func TestLoader_SourceErrorKeepsEarlierRows(t *testing.T) {
	src := readerSource{reader: &failingReader{
		rows: [][]string{answerRow("07/22/2010 07:33:23", "ACM2278")},
		err:  errors.New("connection reset"),
	}}
	gt := NewLoader(nil, nil).Load(context.Background(), src, SliceSource{
		Label: "after",
		Rows:  [][]string{answerRow("08/01/2010 07:33:23", "BBB0001")},
	})
	assert.Equal(t, []string{"ACM2278", "BBB0001"}, gt.SortedUsers())
}

func TestLoader_BadRowErrorIsPerRow(t *testing.T) {
	calls := 0
	src := readerSource{reader: funcReader(func() ([]string, error) {
		calls++
		switch calls {
		case 1:
			return nil, ErrBadRow
		case 2:
			return answerRow("07/22/2010 07:33:23", "ACM2278"), nil
		default:
			return nil, io.EOF
		}
	})}
	gt := NewLoader(nil, nil).Load(context.Background(), src)
	assert.Equal(t, 1, gt.UserCount())
}

type funcReader func() ([]string, error)

func (f funcReader) Next() ([]string, error) { return f() }
func (f funcReader) Close() error            { return nil }

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gt := NewLoader(nil, nil).Load(ctx, SliceSource{Rows: [][]string{answerRow("07/22/2010 07:33:23", "A")}})
	assert.True(t, gt.Empty())
}

func TestGroundTruthHelpers(t *testing.T) {
	d := activity.MustParseDay("2010-01-10")
	gt := FromUsers([]string{"B", " A ", ""}, d)
	assert.Equal(t, []string{"A", "B"}, gt.SortedUsers())
	assert.True(t, gt.IsMaliciousUser("A"))
	assert.False(t, gt.IsMaliciousUser(" A "))

	other := FromUsers([]string{"C"}, d.AddDays(1))
	gt.Merge(other)
	gt.Merge(nil)
	assert.Equal(t, 3, gt.UserCount())
	assert.Equal(t, 2, gt.DayCount())

	var none *GroundTruth
	assert.False(t, none.IsMaliciousUser("A"))
	assert.Zero(t, none.UserCount())
	assert.True(t, none.Empty())
	assert.NotNil(t, none.Days())
}

func TestLoader_DebugLogListsUsersInOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.DebugLevel)
	src := SliceSource{Label: "answers", Rows: [][]string{
		answerRow("08/12/2010 16:10:00", "CMP2946"),
		answerRow("07/22/2010 07:33:23", "ACM2278"),
	}}

	NewLoader(logger, nil).Load(context.Background(), src)

	out := buf.String()
	require.Contains(t, out, `"malicious users"`)
	assert.Contains(t, out, `["ACM2278","CMP2946"]`)
}
