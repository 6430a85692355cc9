// Package repository defines the narrow table-scoped storage surface the
// application needs from its hosted backend, plus a typed wrapper over it.
package repository

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup by ID matches no row.
var ErrNotFound = errors.New("record not found")

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Filter restricts a select to rows whose column compares to Value.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Query describes a single-table select.
type Query struct {
	Filters []Filter
	Order   string
	Desc    bool
	Limit   int
}

// Where adds an equality filter.
func (q Query) Where(column string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: OpEq, Value: value})
	return q
}

// Since adds an inclusive lower bound.
func (q Query) Since(column string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: OpGte, Value: value})
	return q
}

// Until adds an inclusive upper bound.
func (q Query) Until(column string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: OpLte, Value: value})
	return q
}

// OrderBy sets the sort column.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Order = column
	q.Desc = desc
	return q
}

// Take caps the number of rows returned.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Backend is the storage service as seen by the application.
type Backend interface {
	Select(ctx context.Context, table string, q Query, dest any) error
	Insert(ctx context.Context, table string, row any) error
	Update(ctx context.Context, table, id string, patch map[string]any) error
	Delete(ctx context.Context, table, id string) error
	Close(ctx context.Context) error
}

// Table is a typed view of one backend table.
type Table[T any] struct {
	backend Backend
	name    string
}

// NewTable binds a row type to a table name.
func NewTable[T any](backend Backend, name string) Table[T] {
	return Table[T]{backend: backend, name: name}
}

// Name returns the table name.
func (t Table[T]) Name() string { return t.name }

// List returns the rows matching q.
func (t Table[T]) List(ctx context.Context, q Query) ([]T, error) {
	var rows []T
	if err := t.backend.Select(ctx, t.name, q, &rows); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, err)
	}
	return rows, nil
}

// Get returns the row with the given ID.
func (t Table[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	rows, err := t.List(ctx, Query{}.Where("id", id).Take(1))
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("%s %s: %w", t.name, id, ErrNotFound)
	}
	return rows[0], nil
}

// Insert writes one row.
func (t Table[T]) Insert(ctx context.Context, row *T) error {
	if err := t.backend.Insert(ctx, t.name, row); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

// Update patches the row with the given ID.
func (t Table[T]) Update(ctx context.Context, id string, patch map[string]any) error {
	if err := t.backend.Update(ctx, t.name, id, patch); err != nil {
		return fmt.Errorf("update %s %s: %w", t.name, id, err)
	}
	return nil
}

// Delete removes the row with the given ID.
func (t Table[T]) Delete(ctx context.Context, id string) error {
	if err := t.backend.Delete(ctx, t.name, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", t.name, id, err)
	}
	return nil
}

// BackendError carries the storage service's own error message so callers
// can surface it verbatim.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Message extracts the backend's own message from err, falling back to err.Error().
func Message(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
