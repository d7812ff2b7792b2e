package dashboard

import (
	"strings"
	"testing"

	"mliang-listings/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []domain.Record {
	return []domain.Record{
		{domain.PropertyIDField: float64(3), "Village": "Sta. Lucia", "Location": "Angeles City", "Type": "Residential", "tag": "a"},
		{domain.PropertyIDField: float64(1), "Village": "dau", "Location": "Mabalacat", "Type": "Lot", "tag": "b"},
		{domain.PropertyIDField: float64(2), "Village": "Cutud", "Location": "City of San Fernando", "Type": "Residential", "tag": "c"},
		{domain.PropertyIDField: float64(2), "Village": "Baliti", "Location": "City of San Fernando", "Type": "Lot", "tag": "d"},
		{domain.PropertyIDField: "x", "Village": "Dolores", "Location": "City of San Fernando", "Type": "Lot", "tag": "e"},
	}
}

func tags(rows []domain.Record) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(r.String("tag"))
	}
	return b.String()
}

func TestFilter_SearchMatchesAnyField(t *testing.T) {
	rows := sampleRows()
	for _, s := range []string{"SAN", "lot", "1", "dau"} {
		got := Filter(rows, Query{Search: s})
		needle := strings.ToLower(s)
		in := map[string]bool{}
		for _, r := range got {
			in[r.String("tag")] = true
			assert.True(t, MatchesSearch(r, needle), s)
		}
		for _, r := range rows {
			if !in[r.String("tag")] {
				assert.False(t, MatchesSearch(r, needle), s)
			}
		}
	}
}

func TestFilter_ConjunctionWithColumnFilters(t *testing.T) {
	got := Filter(sampleRows(), Query{
		Search:  "san fernando",
		Filters: map[string]string{"Type": "lot", "Village": ""},
	})
	assert.Equal(t, "de", tags(got))
}

func TestFilter_WhitespaceIsPartOfTheNeedle(t *testing.T) {
	rows := []domain.Record{
		{domain.PropertyIDField: float64(1), "Village": "Sunrise", "tag": "a"},
		{domain.PropertyIDField: float64(2), "Village": "Sun Valley", "tag": "b"},
	}
	assert.Equal(t, "b", tags(Filter(rows, Query{Search: "sun "})))
	assert.Equal(t, "b", tags(Filter(rows, Query{Search: "SUN V"})))
	assert.Equal(t, "b", tags(Filter(rows, Query{Filters: map[string]string{"Village": "sun "}})))
	assert.Empty(t, Filter(rows, Query{Search: "   "}))
	assert.Equal(t, "ab", tags(Filter(rows, Query{Search: ""})))

	for _, r := range Filter(rows, Query{Search: "sun "}) {
		assert.True(t, MatchesSearch(r, "sun "))
	}
}

func TestSelection_ZeroValueToggle(t *testing.T) {
	var s Selection
	assert.True(t, s.Toggle(7))
	assert.Equal(t, []int64{7}, s.IDs())
}

func TestSort_PropertyIDNumericAndStable(t *testing.T) {
	rows := sampleRows()
	Sort(rows, domain.PropertyIDField, false)
	assert.Equal(t, "ebcda", tags(rows))

	Sort(rows, domain.PropertyIDField, true)
	assert.Equal(t, "acdbe", tags(rows))
}

func TestSort_AscThenDescReversesWithTiesUnmoved(t *testing.T) {
	for _, col := range []string{domain.PropertyIDField, "Location", "Type"} {
		asc := sampleRows()
		Sort(asc, col, false)
		desc := append([]domain.Record(nil), asc...)
		Sort(desc, col, true)

		// Group by key: the groups appear in reverse, members in the same order.
		groupsAsc := groupKeys(asc, col)
		groupsDesc := groupKeys(desc, col)
		require.Equal(t, len(groupsAsc), len(groupsDesc))
		for i := range groupsAsc {
			assert.Equal(t, groupsAsc[i], groupsDesc[len(groupsDesc)-1-i], col)
		}
	}
}

func groupKeys(rows []domain.Record, col string) []string {
	var out []string
	prev := "\x00"
	for _, r := range rows {
		k := strings.ToLower(r.String(col))
		if col == domain.PropertyIDField {
			k = domain.StringValue(domain.NumericValue(r[col]))
		}
		if k != prev {
			out = append(out, "")
			prev = k
		}
		out[len(out)-1] += r.String("tag")
	}
	return out
}

func TestSort_StringsCaseInsensitive(t *testing.T) {
	rows := sampleRows()
	Sort(rows, "Village", false)
	assert.Equal(t, "dcbea", tags(rows))
}

func TestSort_NoColumnKeepsOrder(t *testing.T) {
	rows := sampleRows()
	Sort(rows, "", true)
	assert.Equal(t, "abcde", tags(rows))
}

func TestApply_States(t *testing.T) {
	cols := []string{domain.PropertyIDField}
	assert.Equal(t, StateLoading, Loading().State)
	assert.Empty(t, Loading().Rows)
	assert.Equal(t, StateEmpty, Apply(nil, Query{}, cols).State)

	v := Apply(sampleRows(), Query{Search: "nowhere"}, cols)
	assert.Equal(t, StateFilteredEmpty, v.State)
	assert.Equal(t, 5, v.Total)
	assert.Equal(t, 0, v.Matched)

	v = Apply(sampleRows(), Query{}, cols)
	assert.Equal(t, StateLoaded, v.State)
	assert.Len(t, v.Rows, 5)
	assert.False(t, v.HasMore)
}

func TestApply_DoesNotReorderInput(t *testing.T) {
	rows := sampleRows()
	Apply(rows, Query{SortBy: "Village"}, nil)
	assert.Equal(t, "abcde", tags(rows))
}

func TestApply_Pagination(t *testing.T) {
	q := Query{SortBy: "tag", Mode: ModePaginated, Page: 2, PerPage: 2}
	v := Apply(sampleRows(), q, nil)
	assert.Equal(t, "cd", tags(v.Rows))
	assert.Equal(t, 2, v.Page)
	assert.Equal(t, 3, v.Pages)
	assert.True(t, v.HasMore)

	q.Page = 9
	v = Apply(sampleRows(), q, nil)
	assert.Equal(t, "e", tags(v.Rows))
	assert.Equal(t, 3, v.Page)
	assert.False(t, v.HasMore)
}

func TestApply_InfiniteReturnsPrefix(t *testing.T) {
	v := Apply(sampleRows(), Query{SortBy: "tag", Mode: ModeInfinite, Page: 2, PerPage: 2}, nil)
	assert.Equal(t, "abcd", tags(v.Rows))
	assert.True(t, v.HasMore)
}

func TestSelection(t *testing.T) {
	s := NewSelection()
	assert.True(t, s.Toggle(4))
	assert.False(t, s.Toggle(4))
	s.Toggle(9)

	filtered := Filter(sampleRows(), Query{Search: "san fernando"})
	s.SelectAll(filtered)
	assert.Equal(t, []int64{2}, s.IDs())
	assert.False(t, s.has(9))
	assert.False(t, s.AllSelected(filtered))

	lots := Filter(sampleRows(), Query{Filters: map[string]string{"Village": "dau"}})
	s.SelectAll(lots)
	assert.True(t, s.AllSelected(lots))
	assert.Equal(t, 1, s.Len())
}
