package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// mockDB satisfies the DB interface through testify expectations.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// cmdTag builds a CommandTag reporting n affected rows, for methods that
// branch on RowsAffected.
func cmdTag(verb string, n int) pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("%s %d", verb, n))
}

// mockRow is a pgx.Row holding one row of column values. A nil value leaves
// its destination at the zero value, like a SQL NULL scanned into a pointer.
type mockRow struct {
	vals []any
	err  error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	return assignRow(dest, m.vals)
}

// mockRows is a pgx.Rows over a fixed list of value rows.
type mockRows struct {
	rows [][]any
	idx  int
	err  error
}

func rowsOf(rows ...[]any) *mockRows { return &mockRows{rows: rows} }

// noRows yields an empty result set.
func noRows() *mockRows { return &mockRows{} }

func (m *mockRows) Next() bool { return m.idx < len(m.rows) }

func (m *mockRows) Scan(dest ...any) error {
	if m.idx >= len(m.rows) {
		return errors.New("scan called past the last row")
	}
	vals := m.rows[m.idx]
	m.idx++
	return assignRow(dest, vals)
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// assignRow copies row values into scan destinations, converting between
// numeric widths the way values arrive from the driver.
func assignRow(dest, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(vals))
	}
	for i, v := range vals {
		rv := reflect.ValueOf(dest[i])
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return fmt.Errorf("scan destination %d is not a pointer", i)
		}
		elem := rv.Elem()
		if v == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		val := reflect.ValueOf(v)
		switch {
		case val.Type().AssignableTo(elem.Type()):
			elem.Set(val)
		case numericKind(val.Kind()) && numericKind(elem.Kind()):
			elem.Set(val.Convert(elem.Type()))
		default:
			return fmt.Errorf("scan destination %d: cannot assign %T", i, v)
		}
	}
	return nil
}

func numericKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}
