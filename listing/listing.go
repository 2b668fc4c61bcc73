// Package listing filters, searches, sorts and paginates record tables in
// memory, the way the dashboard tables do it.
package listing

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	TabAll          = "all"
	DefaultPageSize = 10
)

type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

type Query struct {
	Tab      string
	Search   string
	Sort     SortOrder
	Page     int
	PageSize int
}

// Options tell Apply how to look at a record type.
type Options[T any] struct {
	// Tabs maps a tab name to the predicate selecting its rows. An unknown
	// or empty tab shows everything.
	Tabs map[string]func(T) bool
	// Fields returns the stringified values free-text search matches against.
	Fields func(T) []string
	// Date is the sort key.
	Date func(T) time.Time
}

type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}

// ParseQuery reads tab, q, sort, page and page_size from URL values.
func ParseQuery(values url.Values, defaultPageSize int) Query {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	q := Query{
		Tab:      strings.ToLower(strings.TrimSpace(values.Get("tab"))),
		Search:   strings.TrimSpace(values.Get("q")),
		Sort:     SortDesc,
		Page:     1,
		PageSize: defaultPageSize,
	}
	if SortOrder(strings.ToLower(values.Get("sort"))) == SortAsc {
		q.Sort = SortAsc
	}
	if p, err := strconv.Atoi(values.Get("page")); err == nil && p > 0 {
		q.Page = p
	}
	if ps, err := strconv.Atoi(values.Get("page_size")); err == nil && ps > 0 && ps <= 100 {
		q.PageSize = ps
	}
	return q
}

// Filter applies the tab and search parts of q and sorts the result, without
// paginating. Exports use it to dump the whole filtered table.
func Filter[T any](items []T, q Query, opts Options[T]) []T {
	out := make([]T, 0, len(items))

	tab := opts.Tabs[q.Tab]
	needle := strings.ToLower(q.Search)

	for _, item := range items {
		if tab != nil && !tab(item) {
			continue
		}
		if needle != "" && !matches(item, needle, opts.Fields) {
			continue
		}
		out = append(out, item)
	}

	if opts.Date != nil {
		slices.SortStableFunc(out, func(a, b T) int {
			c := opts.Date(a).Compare(opts.Date(b))
			if q.Sort == SortAsc {
				return c
			}
			return -c
		})
	}
	return out
}

// Apply filters, sorts and slices items into the requested page. A page past
// the end yields no items but keeps the totals.
func Apply[T any](items []T, q Query, opts Options[T]) Page[T] {
	filtered := Filter(items, q, opts)

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := max(q.Page, 1)

	total := len(filtered)
	pages := (total + size - 1) / size

	start := min((page-1)*size, total)
	end := min(start+size, total)

	return Page[T]{
		Items:    filtered[start:end],
		Total:    total,
		Page:     page,
		PageSize: size,
		Pages:    pages,
	}
}

func matches[T any](item T, needle string, fields func(T) []string) bool {
	if fields == nil {
		return true
	}
	for _, f := range fields(item) {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
