// Package query renders table view state into SQL.
//
// The builder is pure: the same table, state and mode always yield the same
// string. It performs no validation. Identifiers are emitted verbatim and
// unknown operators fall back to the binary comparison form.
package query

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// Mode selects whether pagination is appended.
type Mode int

const (
	// ModePage appends LIMIT/OFFSET for the state's current page.
	ModePage Mode = iota
	// ModeExport returns the full filtered and sorted result.
	ModeExport
)

// Build renders the SELECT for table under state.
func Build(table string, state core.TableViewState, mode Mode) string {
	var b strings.Builder
	b.WriteString(SelectAll(table))
	writeWhere(&b, state.Filters)
	writeOrderBy(&b, state)

	if mode == ModePage {
		pageSize := state.PageSize
		if pageSize <= 0 {
			pageSize = core.DefaultPageSize
		}
		page := state.Page
		if page < 1 {
			page = 1
		}
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(pageSize))
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa((page - 1) * pageSize))
	}
	return b.String()
}

// BuildCount renders a COUNT(*) over table with the state's filters applied.
func BuildCount(table string, state core.TableViewState) string {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(table)
	writeWhere(&b, state.Filters)
	return b.String()
}

// SelectAll renders the unfiltered scan of table.
func SelectAll(table string) string {
	return "SELECT * FROM " + table
}

// Clause renders a single filter predicate.
func Clause(f core.Filter) string {
	switch f.Operator {
	case core.OpIsNull:
		return f.Column + " IS NULL"
	case core.OpIsNotNull:
		return f.Column + " IS NOT NULL"
	case core.OpLike:
		return f.Column + " LIKE " + Quote("%"+f.Value+"%")
	case core.OpIn, core.OpNotIn:
		return f.Column + " " + string(f.Operator) + " (" + quoteList(f.Value) + ")"
	default:
		return f.Column + " " + string(f.Operator) + " " + Quote(f.Value)
	}
}

// Quote wraps s in single quotes, doubling embedded quotes.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteList(value string) string {
	parts := strings.Split(value, ",")
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		quoted = append(quoted, Quote(p))
	}
	return strings.Join(quoted, ", ")
}

func writeWhere(b *strings.Builder, filters []core.Filter) {
	if len(filters) == 0 {
		return
	}
	clauses := make([]string, len(filters))
	for i, f := range filters {
		clauses[i] = Clause(f)
	}
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(clauses, " AND "))
}

func writeOrderBy(b *strings.Builder, state core.TableViewState) {
	switch {
	case state.SortColumn != "":
		b.WriteString(" ORDER BY ")
		b.WriteString(state.SortColumn)
		b.WriteString(" ")
		b.WriteString(state.SortDirection.SQL())
	case len(state.SortColumns) > 0:
		keys := make([]string, len(state.SortColumns))
		for i, k := range state.SortColumns {
			keys[i] = k.Column + " " + k.Direction.SQL()
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(keys, ", "))
	}
}
