package groundtruth

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the slice of pgx the Postgres source needs. *pgxpool.Pool and
// *pgx.Conn both satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DefaultAnswerQuery selects answer rows in the same column order as the
// CSV answer files: type, id, date, user, pc, detail.
const DefaultAnswerQuery = `SELECT kind, id, occurred_at, user_id, pc, detail FROM insider_answers ORDER BY id`

// PostgresSource streams answer rows from a SQL query. Every column is
// rendered as text so rows look exactly like CSV rows to the loader.
type PostgresSource struct {
	Label string
	DB    Querier
	SQL   string
	Args  []any
}

// NewPostgresPool opens a small pool for reading answer tables.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return pool, nil
}

func (s PostgresSource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "postgres"
}

func (s PostgresSource) Open(ctx context.Context) (RowReader, error) {
	query := s.SQL
	if query == "" {
		query = DefaultAnswerQuery
	}
	rows, err := s.DB.Query(ctx, query, s.Args...)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	return &pgReader{rows: rows}, nil
}

type pgReader struct {
	rows pgx.Rows
}

func (p *pgReader) Next() ([]string, error) {
	if !p.rows.Next() {
		if err := p.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	values, err := p.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRow, err)
	}
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = textValue(v)
	}
	return row, nil
}

func (p *pgReader) Close() error {
	p.rows.Close()
	return p.rows.Err()
}
