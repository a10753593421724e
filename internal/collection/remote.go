package collection

import (
	"context"
	"sync"
	"sync/atomic"

	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

// Fetcher serves one page of the collection for a query. Implementations own
// timeouts; the view only cancels.
type Fetcher[T any] interface {
	FetchPage(ctx context.Context, q Query) (rows []T, totalRecords int, err error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc[T any] func(ctx context.Context, q Query) ([]T, int, error)

// FetchPage implements Fetcher.
func (f FetcherFunc[T]) FetchPage(ctx context.Context, q Query) ([]T, int, error) {
	return f(ctx, q)
}

// Remote serialises the query to a fetcher and treats the returned page and
// total as authoritative: the page is never re-filtered or re-sorted
// locally. Each refresh carries a generation number; a response belonging to
// a superseded query is discarded, so the last issued query always wins
// regardless of arrival order.
type Remote[T any] struct {
	fetcher Fetcher[T]

	generation atomic.Uint64

	mu    sync.Mutex
	query Query
	page  Page[T]
	ready bool
}

// NewRemote builds a remote view. No fetch is issued until Refresh.
func NewRemote[T any](fetcher Fetcher[T], pageSize int) *Remote[T] {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Remote[T]{
		fetcher: fetcher,
		query: Query{
			Filters:  map[string]Predicate{},
			PageSize: pageSize,
		},
	}
}

// NewRemoteAt builds a remote view seeded with a full query, for callers
// that materialise a one-shot request instead of driving mutators. No fetch
// is issued until Refresh.
func NewRemoteAt[T any](fetcher Fetcher[T], q Query) *Remote[T] {
	if q.PageSize <= 0 {
		q.PageSize = 10
	}
	if q.Filters == nil {
		q.Filters = map[string]Predicate{}
	}
	return &Remote[T]{fetcher: fetcher, query: q.Clone()}
}

// ApplyFilter sets a field predicate, resets to the first page and refetches.
func (v *Remote[T]) ApplyFilter(ctx context.Context, field string, p Predicate) error {
	v.mu.Lock()
	v.query.Filters[field] = p
	v.query.PageIndex = 0
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// ClearFilter removes a field predicate and refetches.
func (v *Remote[T]) ClearFilter(ctx context.Context, field string) error {
	v.mu.Lock()
	delete(v.query.Filters, field)
	v.query.PageIndex = 0
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// ApplySort replaces the sort order and refetches. An empty field clears it.
func (v *Remote[T]) ApplySort(ctx context.Context, field string, d Direction) error {
	v.mu.Lock()
	if field == "" {
		v.query.Sort = nil
	} else {
		v.query.Sort = []SortKey{{Field: field, Direction: d}}
	}
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// GotoPage requests a zero-based page. Once a page has been served the index
// is validated against the known page count; out-of-range requests fail
// instead of being served empty against a stale index.
func (v *Remote[T]) GotoPage(ctx context.Context, index int) error {
	v.mu.Lock()
	if index < 0 || (v.ready && index > 0 && index >= v.page.PageCount) {
		v.mu.Unlock()
		return appErrors.ErrPageOutOfRange
	}
	v.query.PageIndex = index
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SetPageSize changes the page size, resets to the first page and refetches.
func (v *Remote[T]) SetPageSize(ctx context.Context, size int) error {
	if size <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "page size must be positive")
	}
	v.mu.Lock()
	v.query.PageSize = size
	v.query.PageIndex = 0
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// Refresh issues the fetch for the current query. If a newer query is issued
// while this one is in flight, the stale response is dropped on arrival and
// the view state is left to the newer fetch.
func (v *Remote[T]) Refresh(ctx context.Context) error {
	gen := v.generation.Add(1)
	v.mu.Lock()
	query := v.query.Clone()
	v.mu.Unlock()

	rows, total, err := v.fetcher.FetchPage(ctx, query)

	v.mu.Lock()
	defer v.mu.Unlock()
	// Re-checked under the lock so a newer response that already landed
	// cannot be overwritten by this one.
	if v.generation.Load() != gen {
		// Superseded while in flight. The newer fetch owns the view now.
		return nil
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "collection fetch failed")
	}

	v.page = Page[T]{
		Rows:         rows,
		TotalRecords: total,
		PageIndex:    query.PageIndex,
		PageCount:    PageCount(total, query.PageSize),
	}
	v.ready = true
	return nil
}

// CurrentPage returns the last authoritative page.
func (v *Remote[T]) CurrentPage() Page[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// Query returns a snapshot of the current query state.
func (v *Remote[T]) Query() Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query.Clone()
}
