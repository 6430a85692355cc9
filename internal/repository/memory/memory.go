// Package memory provides an in-process repository.Backend used by tests and
// local demos. Rows are kept in their JSON shape so that filtering behaves
// the same way it does against the hosted REST backend.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mamadbah2/farmops/internal/repository"
)

type row = map[string]any

// Backend is a concurrency-safe in-memory table store.
type Backend struct {
	mu     sync.RWMutex
	tables map[string][]row

	// FailOn makes every call touching the named table fail; tests use it to
	// exercise degraded paths.
	FailOn map[string]error
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{tables: make(map[string][]row), FailOn: make(map[string]error)}
}

var _ repository.Backend = (*Backend)(nil)

func (b *Backend) failure(table string) error {
	if err, ok := b.FailOn[table]; ok {
		return err
	}
	return nil
}

// Select implements repository.Backend.
func (b *Backend) Select(_ context.Context, table string, q repository.Query, dest any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.failure(table); err != nil {
		return err
	}

	filters := make([]repository.Filter, 0, len(q.Filters))
	for _, f := range q.Filters {
		v, err := normalize(f.Value)
		if err != nil {
			return fmt.Errorf("normalize filter %s: %w", f.Column, err)
		}
		filters = append(filters, repository.Filter{Column: f.Column, Op: f.Op, Value: v})
	}

	matched := make([]row, 0)
	for _, r := range b.tables[table] {
		if matches(r, filters) {
			matched = append(matched, r)
		}
	}

	if q.Order != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compare(matched[i][q.Order], matched[j][q.Order])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	raw, err := json.Marshal(matched)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	return json.Unmarshal(raw, dest)
}

// Insert implements repository.Backend.
func (b *Backend) Insert(_ context.Context, table string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failure(table); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	var r row
	if err := json.Unmarshal(raw, &r); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	id, _ := r["id"].(string)
	if id == "" {
		return &repository.BackendError{Message: "null value in column \"id\" violates not-null constraint"}
	}
	if b.indexOf(table, id) >= 0 {
		return &repository.BackendError{Message: fmt.Sprintf("duplicate key value violates unique constraint \"%s_pkey\"", table)}
	}
	b.tables[table] = append(b.tables[table], r)
	return nil
}

// Update implements repository.Backend.
func (b *Backend) Update(_ context.Context, table, id string, patch map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failure(table); err != nil {
		return err
	}

	idx := b.indexOf(table, id)
	if idx < 0 {
		return repository.ErrNotFound
	}
	updated := make(row, len(b.tables[table][idx]))
	for k, v := range b.tables[table][idx] {
		updated[k] = v
	}
	for k, v := range patch {
		nv, err := normalize(v)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", k, err)
		}
		updated[k] = nv
	}
	b.tables[table][idx] = updated
	return nil
}

// Delete implements repository.Backend.
func (b *Backend) Delete(_ context.Context, table, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failure(table); err != nil {
		return err
	}

	idx := b.indexOf(table, id)
	if idx < 0 {
		return repository.ErrNotFound
	}
	rows := b.tables[table]
	b.tables[table] = append(rows[:idx:idx], rows[idx+1:]...)
	return nil
}

// Close implements repository.Backend.
func (b *Backend) Close(context.Context) error { return nil }

// Len returns the number of rows in table.
func (b *Backend) Len(table string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tables[table])
}

func (b *Backend) indexOf(table, id string) int {
	for i, r := range b.tables[table] {
		if r["id"] == id {
			return i
		}
	}
	return -1
}

func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func matches(r row, filters []repository.Filter) bool {
	for _, f := range filters {
		v, ok := r[f.Column]
		if !ok {
			return false
		}
		c := compare(v, f.Value)
		switch f.Op {
		case repository.OpEq:
			if c != 0 {
				return false
			}
		case repository.OpGte:
			if c < 0 {
				return false
			}
		case repository.OpLte:
			if c > 0 {
				return false
			}
		}
	}
	return true
}

// compare orders JSON scalars: numbers numerically, everything else by its
// string form. Dates are "YYYY-MM-DD" strings and so sort chronologically.
func compare(a, b any) int {
	if af, ok := a.(float64); ok {
		if bf, ok := b.(float64); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
