// Package dashboard derives the table view of the listings: search, column
// filters, sort, paging and selection.
package dashboard

import (
	"sort"
	"strings"

	"mliang-listings/internal/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// State of the table view.
type State string

const (
	StateLoading       State = "loading"
	StateEmpty         State = "empty"
	StateFilteredEmpty State = "filtered-empty"
	StateLoaded        State = "loaded"
)

// Mode selects how rows are paged.
type Mode string

const (
	ModeAll       Mode = "all"
	ModePaginated Mode = "paginated"
	ModeInfinite  Mode = "infinite"
)

// DefaultPerPage applies when a paged mode is requested without a size.
const DefaultPerPage = 10

// Query is the view's input state.
type Query struct {
	Search  string            `json:"search"`
	Filters map[string]string `json:"filters"`
	SortBy  string            `json:"sort_by"`
	Desc    bool              `json:"desc"`
	Mode    Mode              `json:"mode"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
}

// View is what the table renders.
type View struct {
	State   State           `json:"state"`
	Columns []string        `json:"columns"`
	Rows    []domain.Record `json:"rows"`
	Total   int             `json:"total"`
	Matched int             `json:"matched"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
	HasMore bool            `json:"has_more"`
}

// Loading is the view before the first fetch completes.
func Loading() View {
	return View{State: StateLoading, Columns: []string{}, Rows: []domain.Record{}}
}

// Apply filters, sorts and pages rows. rows is not modified.
func Apply(rows []domain.Record, q Query, columns []string) View {
	v := View{Columns: columns, Total: len(rows), Rows: []domain.Record{}}
	if len(rows) == 0 {
		v.State = StateEmpty
		return v
	}
	matched := Filter(rows, q)
	Sort(matched, q.SortBy, q.Desc)
	v.Matched = len(matched)
	if len(matched) == 0 {
		v.State = StateFilteredEmpty
		return v
	}
	v.State = StateLoaded
	v.Rows, v.Page, v.Pages, v.HasMore = paginate(matched, q)
	return v
}

// Filter keeps the rows matching the search text on any field and every
// non-empty column filter. Matching is a case-insensitive substring test on
// the field's string form; whitespace in the needle is significant.
func Filter(rows []domain.Record, q Query) []domain.Record {
	search := strings.ToLower(q.Search)
	filters := make(map[string]string, len(q.Filters))
	for col, f := range q.Filters {
		if f != "" {
			f = strings.ToLower(f)
			filters[col] = f
		}
	}
	out := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		if search != "" && !MatchesSearch(r, search) {
			continue
		}
		ok := true
		for col, f := range filters {
			if !strings.Contains(strings.ToLower(r.String(col)), f) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

// MatchesSearch reports whether any field of r contains the lowercased needle.
func MatchesSearch(r domain.Record, needle string) bool {
	for _, v := range r {
		if strings.Contains(strings.ToLower(domain.StringValue(v)), needle) {
			return true
		}
	}
	return false
}

// Sort orders rows in place by one column. The id sorts numerically;
// every other column compares lowercased strings with locale collation.
// Equal keys keep their relative order in both directions. An empty
// column leaves the order as is.
func Sort(rows []domain.Record, column string, desc bool) {
	if column == "" {
		return
	}
	var cmp func(a, b domain.Record) int
	if column == domain.PropertyIDField {
		cmp = func(a, b domain.Record) int {
			x, y := domain.NumericValue(a[column]), domain.NumericValue(b[column])
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	} else {
		col := collate.New(language.English)
		cmp = func(a, b domain.Record) int {
			return col.CompareString(strings.ToLower(a.String(column)), strings.ToLower(b.String(column)))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := cmp(rows[i], rows[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func paginate(rows []domain.Record, q Query) ([]domain.Record, int, int, bool) {
	mode := q.Mode
	if mode == "" {
		mode = ModeAll
	}
	if mode == ModeAll {
		return rows, 1, 1, false
	}
	per := q.PerPage
	if per <= 0 {
		per = DefaultPerPage
	}
	pages := (len(rows) + per - 1) / per
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	end := page * per
	if end > len(rows) {
		end = len(rows)
	}
	start := (page - 1) * per
	if mode == ModeInfinite {
		start = 0
	}
	return rows[start:end], page, pages, end < len(rows)
}
