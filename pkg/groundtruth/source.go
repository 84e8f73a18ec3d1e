package groundtruth

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// RowReader yields untyped rows until io.EOF. A *csv.ParseError or
// ErrBadRow means only the current row is unusable; any other error ends
// the source.
type RowReader interface {
	Next() ([]string, error)
	Close() error
}

// RowSource is a named, openable stream of answer rows.
type RowSource interface {
	Name() string
	Open(ctx context.Context) (RowReader, error)
}

// ErrBadRow marks a row a reader could not decode while the rest of the
// source stays readable.
var ErrBadRow = errors.New("unreadable row")

// ErrSourceNotFound is returned by Open when the source does not exist.
var ErrSourceNotFound = errors.New("ground-truth source not found")

// SliceSource serves rows from memory.
type SliceSource struct {
	Label string
	Rows  [][]string
}

func (s SliceSource) Name() string { return s.Label }

func (s SliceSource) Open(context.Context) (RowReader, error) {
	return &sliceReader{rows: s.Rows}, nil
}

type sliceReader struct {
	rows [][]string
	pos  int
}

func (r *sliceReader) Next() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *sliceReader) Close() error { return nil }

// OpenFunc opens the raw bytes behind a CSV source.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// CSVSource reads header-less CSV rows of any width. Quotes are handled
// leniently and ragged rows are allowed; column-count checks belong to the
// loader.
type CSVSource struct {
	Label  string
	Opener OpenFunc
}

// FileSource returns a CSVSource over a local file.
func FileSource(path string) CSVSource {
	return CSVSource{
		Label: path,
		Opener: func(context.Context) (io.ReadCloser, error) {
			f, err := os.Open(path)
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
			}
			return f, err
		},
	}
}

func (s CSVSource) Name() string { return s.Label }

func (s CSVSource) Open(ctx context.Context) (RowReader, error) {
	rc, err := s.Opener(ctx)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = false
	return &csvReader{r: r, closer: rc}, nil
}

type csvReader struct {
	r      *csv.Reader
	closer io.Closer
}

func (c *csvReader) Next() ([]string, error) {
	return c.r.Read()
}

func (c *csvReader) Close() error {
	return c.closer.Close()
}
