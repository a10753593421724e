package collection

import (
	"context"
	"sort"

	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

// FieldFunc projects a named field out of a row for filtering and sorting.
type FieldFunc[T any] func(row T, field string) string

// Local holds the full record set in memory and recomputes filtering,
// sorting and pagination synchronously on every query change. Clearing all
// filters and sorts restores the source ordering.
type Local[T any] struct {
	source []T
	field  FieldFunc[T]
	query  Query
	rows   []T
}

// NewLocal builds a local view over the given rows.
func NewLocal[T any](rows []T, field FieldFunc[T], pageSize int) *Local[T] {
	if pageSize <= 0 {
		pageSize = 10
	}
	v := &Local[T]{
		source: rows,
		field:  field,
		query: Query{
			Filters:  map[string]Predicate{},
			PageSize: pageSize,
		},
	}
	v.recompute()
	return v
}

// ApplyFilter sets the predicate for a field and resets to the first page.
func (v *Local[T]) ApplyFilter(_ context.Context, field string, p Predicate) error {
	v.query.Filters[field] = p
	v.query.PageIndex = 0
	v.recompute()
	return nil
}

// ClearFilter removes a field's predicate.
func (v *Local[T]) ClearFilter(_ context.Context, field string) error {
	delete(v.query.Filters, field)
	v.query.PageIndex = 0
	v.recompute()
	return nil
}

// ApplySort replaces the sort order with a single key. An empty field clears
// sorting and restores source order.
func (v *Local[T]) ApplySort(_ context.Context, field string, d Direction) error {
	if field == "" {
		v.query.Sort = nil
	} else {
		v.query.Sort = []SortKey{{Field: field, Direction: d}}
	}
	v.recompute()
	return nil
}

// GotoPage moves to the requested zero-based page. Out-of-range requests are
// rejected rather than served empty.
func (v *Local[T]) GotoPage(_ context.Context, index int) error {
	pageCount := PageCount(len(v.rows), v.query.PageSize)
	if index < 0 || (index > 0 && index >= pageCount) {
		return appErrors.ErrPageOutOfRange
	}
	v.query.PageIndex = index
	return nil
}

// SetPageSize changes the page size and resets to the first page so the
// index can never point past the end.
func (v *Local[T]) SetPageSize(_ context.Context, size int) error {
	if size <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "page size must be positive")
	}
	v.query.PageSize = size
	v.query.PageIndex = 0
	return nil
}

// Refresh is a no-op for the local strategy; the set is already in memory.
func (v *Local[T]) Refresh(_ context.Context) error {
	v.recompute()
	return nil
}

// CurrentPage slices the filtered, sorted rows for the current page.
func (v *Local[T]) CurrentPage() Page[T] {
	total := len(v.rows)
	pageCount := PageCount(total, v.query.PageSize)
	start := v.query.PageIndex * v.query.PageSize
	if start > total {
		start = total
	}
	end := start + v.query.PageSize
	if end > total {
		end = total
	}
	rows := make([]T, end-start)
	copy(rows, v.rows[start:end])
	return Page[T]{
		Rows:         rows,
		TotalRecords: total,
		PageIndex:    v.query.PageIndex,
		PageCount:    pageCount,
	}
}

func (v *Local[T]) recompute() {
	rows := make([]T, 0, len(v.source))
	for _, row := range v.source {
		if v.matches(row) {
			rows = append(rows, row)
		}
	}
	if len(v.query.Sort) > 0 {
		keys := v.query.Sort
		sort.SliceStable(rows, func(i, j int) bool {
			for _, key := range keys {
				a := v.field(rows[i], key.Field)
				b := v.field(rows[j], key.Field)
				if a == b {
					continue
				}
				if key.Direction == Descending {
					return a > b
				}
				return a < b
			}
			return false
		})
	}
	v.rows = rows
	if maxPage := PageCount(len(rows), v.query.PageSize); maxPage == 0 {
		v.query.PageIndex = 0
	} else if v.query.PageIndex >= maxPage {
		v.query.PageIndex = maxPage - 1
	}
}

func (v *Local[T]) matches(row T) bool {
	for field, p := range v.query.Filters {
		if !p.Matches(v.field(row, field)) {
			return false
		}
	}
	return true
}
