package query

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		state core.TableViewState
		mode  Mode
		want  string
	}{
		{
			name:  "plain first page",
			state: core.NewTableViewState(100),
			mode:  ModePage,
			want:  "SELECT * FROM users LIMIT 100 OFFSET 0",
		},
		{
			name: "filter on second page",
			state: core.TableViewState{
				Page:     2,
				PageSize: 10,
				Filters:  []core.Filter{{Column: "age", Operator: core.OpGreater, Value: "30"}},
			},
			mode: ModePage,
			want: "SELECT * FROM users WHERE age > '30' LIMIT 10 OFFSET 10",
		},
		{
			name: "multi sort with default direction",
			state: core.TableViewState{
				Page:     1,
				PageSize: 5,
				SortColumns: []core.SortKey{
					{Column: "a", Direction: core.Desc},
					{Column: "b"},
				},
			},
			mode: ModePage,
			want: "SELECT * FROM users ORDER BY a DESC, b ASC LIMIT 5 OFFSET 0",
		},
		{
			name: "single sort wins over list",
			state: core.TableViewState{
				Page:          1,
				PageSize:      5,
				SortColumn:    "name",
				SortDirection: core.Desc,
				SortColumns:   []core.SortKey{{Column: "ignored"}},
			},
			mode: ModePage,
			want: "SELECT * FROM users ORDER BY name DESC LIMIT 5 OFFSET 0",
		},
		{
			name: "export omits pagination",
			state: core.TableViewState{
				Page:       3,
				PageSize:   10,
				SortColumn: "id",
				Filters: []core.Filter{
					{Column: "deleted_at", Operator: core.OpIsNull},
					{Column: "name", Operator: core.OpLike, Value: "ann"},
				},
			},
			mode: ModeExport,
			want: "SELECT * FROM users WHERE deleted_at IS NULL AND name LIKE '%ann%' ORDER BY id ASC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build("users", tt.state, tt.mode))
		})
	}
}

func TestClause(t *testing.T) {
	tests := []struct {
		name   string
		filter core.Filter
		want   string
	}{
		{"in list trimmed", core.Filter{Column: "col", Operator: core.OpIn, Value: "1, 2,3"}, "col IN ('1', '2', '3')"},
		{"not in drops empties", core.Filter{Column: "col", Operator: core.OpNotIn, Value: "a,, b ,"}, "col NOT IN ('a', 'b')"},
		{"in escapes quotes", core.Filter{Column: "name", Operator: core.OpIn, Value: "O'Brien,x"}, "name IN ('O''Brien', 'x')"},
		{"empty in list", core.Filter{Column: "col", Operator: core.OpIn, Value: " , "}, "col IN ()"},
		{"is not null ignores value", core.Filter{Column: "c", Operator: core.OpIsNotNull, Value: "junk"}, "c IS NOT NULL"},
		{"default escapes quotes", core.Filter{Column: "name", Operator: core.OpEqual, Value: "it's"}, "name = 'it''s'"},
		{"unknown operator falls back", core.Filter{Column: "c", Operator: "~~", Value: "x"}, "c ~~ 'x'"},
		{"not equal", core.Filter{Column: "c", Operator: core.OpNotEqual, Value: "1"}, "c != '1'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clause(tt.filter))
		})
	}
}

func TestBuild_ClauseOrdering(t *testing.T) {
	for _, op := range core.Operators {
		t.Run(string(op), func(t *testing.T) {
			state := core.TableViewState{
				Page:       2,
				PageSize:   20,
				SortColumn: "id",
				Filters:    []core.Filter{{Column: "c", Operator: op, Value: "v"}},
			}
			q := Build("t", state, ModePage)

			assert.Equal(t, 1, strings.Count(q, " WHERE "))
			where := strings.Index(q, " WHERE ")
			order := strings.Index(q, " ORDER BY ")
			limit := strings.Index(q, " LIMIT ")
			assert.Less(t, where, order)
			assert.Less(t, order, limit)
		})
	}
}

func TestBuild_PaginationByMode(t *testing.T) {
	states := []core.TableViewState{
		core.NewTableViewState(10),
		core.NewTableViewState(10).WithPage(9, 3),
		core.NewTableViewState(10).WithFilters([]core.Filter{{Column: "x", Operator: core.OpEqual, Value: "1"}}, core.SingleSort("x", core.Desc)),
	}
	for _, s := range states {
		assert.Contains(t, Build("t", s, ModePage), " LIMIT ")
		assert.NotContains(t, Build("t", s, ModeExport), "LIMIT")
	}
}

func TestBuildCount(t *testing.T) {
	state := core.NewTableViewState(10).
		WithSort(core.SingleSort("name", core.Asc)).
		WithFilters([]core.Filter{{Column: "age", Operator: core.OpGreater, Value: "30"}}, core.SortSpec{})

	assert.Equal(t, "SELECT COUNT(*) FROM users WHERE age > '30'", BuildCount("users", state))
	assert.Equal(t, "SELECT COUNT(*) FROM users", BuildCount("users", core.NewTableViewState(10)))
}
