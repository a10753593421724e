// Package collection implements the generic filter/sort/paginate engine
// behind every record list in the console. Two interchangeable strategies
// satisfy the same contract: Local computes over an in-memory set, Remote
// forwards the query to a fetcher and treats the returned page as
// authoritative.
package collection

import (
	"context"
	"strings"
)

// Direction orders a sort key.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// MatchOp selects how a predicate compares values.
type MatchOp string

const (
	MatchExact    MatchOp = "exact"
	MatchContains MatchOp = "contains"
	MatchAnyOf    MatchOp = "any_of"
)

// Predicate is a single-field filter. AnyOf values are OR-combined;
// predicates on different fields are AND-combined by the view.
type Predicate struct {
	Op     MatchOp
	Values []string
}

// Exact matches the value verbatim.
func Exact(value string) Predicate {
	return Predicate{Op: MatchExact, Values: []string{value}}
}

// Contains matches a case-insensitive substring.
func Contains(value string) Predicate {
	return Predicate{Op: MatchContains, Values: []string{value}}
}

// AnyOf matches set membership.
func AnyOf(values ...string) Predicate {
	return Predicate{Op: MatchAnyOf, Values: values}
}

// Matches evaluates the predicate against a field value. An empty AnyOf
// list matches everything, mirroring an unchecked filter group.
func (p Predicate) Matches(value string) bool {
	switch p.Op {
	case MatchExact:
		return len(p.Values) == 1 && p.Values[0] == value
	case MatchContains:
		return len(p.Values) == 1 &&
			strings.Contains(strings.ToLower(value), strings.ToLower(p.Values[0]))
	case MatchAnyOf:
		if len(p.Values) == 0 {
			return true
		}
		for _, v := range p.Values {
			if v == value {
				return true
			}
		}
	}
	return false
}

// SortKey pairs a field with a direction.
type SortKey struct {
	Field     string
	Direction Direction
}

// Query is the full view state sent to a remote fetcher or evaluated
// locally. It lives for one view session and is never persisted.
type Query struct {
	Filters   map[string]Predicate
	Sort      []SortKey
	PageIndex int
	PageSize  int
}

// Clone deep-copies the query so an in-flight fetch keeps a stable snapshot.
func (q Query) Clone() Query {
	out := q
	out.Filters = make(map[string]Predicate, len(q.Filters))
	for k, v := range q.Filters {
		values := make([]string, len(v.Values))
		copy(values, v.Values)
		out.Filters[k] = Predicate{Op: v.Op, Values: values}
	}
	out.Sort = make([]SortKey, len(q.Sort))
	copy(out.Sort, q.Sort)
	return out
}

// Page is one rendered slice of the collection.
type Page[T any] struct {
	Rows         []T
	TotalRecords int
	PageIndex    int
	PageCount    int
}

// PageCount computes ceil(total/size) with a floor of zero.
func PageCount(totalRecords, pageSize int) int {
	if totalRecords <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalRecords + pageSize - 1) / pageSize
}

// View is the strategy-independent contract every record list consumes.
// Mutators adjust the query; Refresh materialises the page (synchronously
// for the local strategy, via the fetcher for the remote one).
type View[T any] interface {
	ApplyFilter(ctx context.Context, field string, p Predicate) error
	ClearFilter(ctx context.Context, field string) error
	ApplySort(ctx context.Context, field string, d Direction) error
	GotoPage(ctx context.Context, index int) error
	SetPageSize(ctx context.Context, size int) error
	Refresh(ctx context.Context) error
	CurrentPage() Page[T]
}
