package listing

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	ID    string
	Title string
	Type  string
	Day   int
}

var docs = []doc{
	{ID: "1", Title: "Mietvertrag Lindenallee", Type: "mietvertrag", Day: 3},
	{ID: "2", Title: "Kündigung Ringstraße", Type: "kuendigung", Day: 9},
	{ID: "3", Title: "Mietvertrag Gartenweg", Type: "mietvertrag", Day: 1},
	{ID: "4", Title: "Übergabe Lindenallee", Type: "uebergabeprotokoll", Day: 7},
	{ID: "5", Title: "Mietvertrag Parkweg", Type: "mietvertrag", Day: 5},
}

func ids(items []doc) []string {
	out := make([]string, len(items))
	for i, d := range items {
		out[i] = d.ID
	}
	return out
}

func byDay(a, b doc) bool { return a.Day < b.Day }

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		opts Options[doc]
		want Page[doc]
	}{
		{
			name: "text filter newest first",
			opts: Options[doc]{
				Filters:  []Predicate[doc]{func(d doc) bool { return MatchText("linden", d.Title) }},
				Less:     Reverse(byDay),
				PageSize: 10,
			},
			want: Page[doc]{Items: []doc{docs[3], docs[0]}, Page: 1, PageSize: 10, TotalItems: 2, TotalPages: 1},
		},
		{
			name: "type filter second page",
			opts: Options[doc]{
				Filters:  []Predicate[doc]{func(d doc) bool { return d.Type == "mietvertrag" }},
				Less:     byDay,
				Page:     2,
				PageSize: 2,
			},
			want: Page[doc]{Items: []doc{docs[4]}, Page: 2, PageSize: 2, TotalItems: 3, TotalPages: 2},
		},
		{
			name: "page beyond the end is clamped",
			opts: Options[doc]{Page: 9, PageSize: 2},
			want: Page[doc]{Items: []doc{docs[4]}, Page: 3, PageSize: 2, TotalItems: 5, TotalPages: 3},
		},
		{
			name: "no matches",
			opts: Options[doc]{Filters: []Predicate[doc]{func(d doc) bool { return false }}, Page: 4},
			want: Page[doc]{Items: []doc{}, Page: 1, PageSize: DefaultPageSize, TotalItems: 0, TotalPages: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(docs, tt.opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply_DoesNotReorderInput(t *testing.T) {
	before := ids(docs)
	Apply(docs, Options[doc]{Less: byDay})
	assert.Equal(t, before, ids(docs))
}

func TestApply_StableSort(t *testing.T) {
	items := []doc{{ID: "a", Day: 1}, {ID: "b", Day: 0}, {ID: "c", Day: 1}, {ID: "d", Day: 0}}
	got := Apply(items, Options[doc]{Less: byDay})
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(got.Items))
}

func TestMatchText(t *testing.T) {
	assert.True(t, MatchText("", "anything"))
	assert.True(t, MatchText("  MIET ", "Mietvertrag"))
	assert.True(t, MatchText("köln", "Lindenallee", "Köln"))
	assert.False(t, MatchText("berlin", "Köln"))
}

func TestSelection(t *testing.T) {
	s := NewSelection("3")
	assert.True(t, s.Toggle("1"))
	assert.False(t, s.Toggle("3"))
	s.Select("2", "2")
	assert.Equal(t, []string{"1", "2"}, s.IDs())
	assert.Equal(t, 2, s.Len())

	visible := []string{"1", "2", "4"}
	s.SelectAll(visible)
	assert.Equal(t, visible, s.IDs())
	s.SelectAll(visible)
	assert.True(t, s.Empty())

	s.Select(strings.Split("a,b,c", ",")...)
	s.Deselect("b")
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("b"))
	s.Clear()
	assert.Equal(t, []string{}, s.IDs())
}

func TestSelection_ZeroValue(t *testing.T) {
	var s Selection
	assert.True(t, s.Empty())
	assert.False(t, s.Has("1"))
	require.NotPanics(t, func() { s.Select("2", "", "1") })
	assert.Equal(t, []string{"1", "2"}, s.IDs())

	var toggled Selection
	assert.True(t, toggled.Toggle("x"))
	assert.False(t, toggled.Toggle(""))

	var all Selection
	all.SelectAll([]string{"b", "a"})
	assert.Equal(t, []string{"a", "b"}, all.IDs())
}
