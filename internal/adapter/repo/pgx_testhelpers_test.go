package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fundledger/internal/infra"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

// eventRows replays stored insert arguments as ledger_events rows.
type eventRows struct {
	testRowsBase
	rows [][]any
	idx  int
	err  error
}

func (r *eventRows) Close() {}

func (r *eventRows) Err() error { return r.err }

func (r *eventRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *eventRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

// fakeSQL records marked statements and serves the journal queries.
type fakeSQL struct {
	queries []string
	stored  [][]any
	failOn  string
}

func (f *fakeSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if err := f.check(query); err != nil {
		return pgconn.CommandTag{}, err
	}
	if strings.Contains(query, "insert into ledger_events") {
		for _, row := range f.stored {
			if row[0] == args[0] {
				return pgconn.CommandTag{}, fmt.Errorf("duplicate key value violates unique constraint")
			}
		}
		f.stored = append(f.stored, append([]any(nil), args...))
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeSQL) QueryRow(_ context.Context, query string, _ ...any) pgx.Row {
	if err := f.check(query); err != nil {
		return simpleRow{scan: func(...any) error { return err }}
	}
	return simpleRow{}
}

func (f *fakeSQL) Query(_ context.Context, query string, _ ...any) (pgx.Rows, error) {
	if err := f.check(query); err != nil {
		return nil, err
	}
	return &eventRows{rows: f.stored}, nil
}

func (f *fakeSQL) check(query string) error {
	if !strings.HasPrefix(strings.TrimSpace(query), "--sql ") {
		return infra.ErrMissingMarker
	}
	f.queries = append(f.queries, query)
	if f.failOn != "" && strings.Contains(query, f.failOn) {
		return fmt.Errorf("connection reset")
	}
	return nil
}

var _ infra.SQLExecutor = (*fakeSQL)(nil)
