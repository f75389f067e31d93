// Package client keeps the rendering side's copy of a table view: the page
// last pushed by the host plus the local refinements (quick search, local
// sort, selection) derived from it.
package client

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/leapview/internal/client/coltype"
	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/pkg/core"
	"golang.org/x/text/cases"
)

// SortMode says which kind of ordering the mirror last requested.
type SortMode int

// Sort modes.
const (
	SortNone SortMode = iota
	SortSingle
	SortMulti
)

// Mirror is not safe for concurrent use; it belongs to the client's event
// loop.
type Mirror struct {
	columns  []core.Column
	names    []string
	fullPage []core.Record
	// working holds full-page indexes in display order.
	working []int
	types   map[string]coltype.Type

	quickFilter string
	currentPage int
	totalPages  int
	pageSize    int
	rowCount    int64

	sortMode      SortMode
	sortColumn    string
	sortDirection core.Direction
	sortColumns   []core.SortKey
	filters       []core.Filter

	selected map[int]bool

	lastError  string
	lastNotice string
}

// NewMirror returns an empty mirror expecting pages of pageSize rows.
func NewMirror(pageSize int) *Mirror {
	if pageSize <= 0 {
		pageSize = core.DefaultPageSize
	}
	return &Mirror{
		currentPage: 1,
		totalPages:  1,
		pageSize:    pageSize,
		types:       map[string]coltype.Type{},
		selected:    map[int]bool{},
	}
}

// Apply folds a host message into the mirror.
func (m *Mirror) Apply(msg protocol.Message) {
	switch v := msg.(type) {
	case protocol.UpdateData:
		m.ApplyUpdate(v)
	case protocol.Error:
		m.lastError = v.Message
	case protocol.Notice:
		m.lastNotice = v.Message
	}
}

// ApplyUpdate replaces the page with authoritative data. Local refinements
// are discarded.
func (m *Mirror) ApplyUpdate(u protocol.UpdateData) {
	m.columns = slices.Clone(u.Data.Columns)
	m.names = core.ColumnNames(m.columns)
	m.fullPage = slices.Clone(u.Data.Rows)
	m.working = allRows(len(m.fullPage))
	m.types = coltype.InferColumns(m.names, m.fullPage)
	m.quickFilter = ""
	m.selected = map[int]bool{}
	m.lastError = ""

	if u.PageSize > 0 {
		m.pageSize = u.PageSize
	}
	m.rowCount = u.Data.RowCount
	m.totalPages = TotalPages(m.rowCount, m.pageSize)
	m.currentPage = min(max(u.Page, 1), m.totalPages)
}

// TotalPages is ceil(rowCount/pageSize), never less than 1.
func TotalPages(rowCount int64, pageSize int) int {
	if pageSize <= 0 || rowCount <= 0 {
		return 1
	}
	return int((rowCount + int64(pageSize) - 1) / int64(pageSize))
}

// Columns returns the column metadata of the current page.
func (m *Mirror) Columns() []core.Column { return m.columns }

// ColumnNames returns the column names of the current page.
func (m *Mirror) ColumnNames() []string { return m.names }

// FullPage returns the rows last pushed by the host.
func (m *Mirror) FullPage() []core.Record { return m.fullPage }

// WorkingSet returns the rows after local filtering and sorting.
func (m *Mirror) WorkingSet() []core.Record {
	out := make([]core.Record, len(m.working))
	for i, idx := range m.working {
		out[i] = m.fullPage[idx]
	}
	return out
}

func allRows(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Types returns the inferred type of each column.
func (m *Mirror) Types() map[string]coltype.Type { return m.types }

// Type returns the inferred type of column, String when unknown.
func (m *Mirror) Type(column string) coltype.Type {
	if t, ok := m.types[column]; ok {
		return t
	}
	return coltype.String
}

// QuickFilter returns the active quick search text.
func (m *Mirror) QuickFilter() string { return m.quickFilter }

// CurrentPage returns the 1-based page shown.
func (m *Mirror) CurrentPage() int { return m.currentPage }

// TotalPages returns the page count for the current row count.
func (m *Mirror) TotalPages() int { return m.totalPages }

// PageSize returns the rows per page.
func (m *Mirror) PageSize() int { return m.pageSize }

// RowCount returns the number of rows matching the host query.
func (m *Mirror) RowCount() int64 { return m.rowCount }

// Filters returns the filters last requested.
func (m *Mirror) Filters() []core.Filter { return slices.Clone(m.filters) }

// SortMode returns the kind of ordering last requested.
func (m *Mirror) SortMode() SortMode { return m.sortMode }

// LastError returns the last error reported by the host since the last
// update.
func (m *Mirror) LastError() string { return m.lastError }

// LastNotice returns the last informational message from the host.
func (m *Mirror) LastNotice() string { return m.lastNotice }

// ApplyQuickFilter keeps the rows of the full page with any non-null value
// containing text, compared case-insensitively. Empty text restores the
// full page.
func (m *Mirror) ApplyQuickFilter(text string) {
	m.quickFilter = text
	if text == "" {
		m.working = allRows(len(m.fullPage))
		return
	}

	fold := cases.Fold()
	needle := fold.String(text)
	out := make([]int, 0, len(m.fullPage))
	for i, row := range m.fullPage {
		for _, col := range m.names {
			v := row[col]
			if v == nil {
				continue
			}
			if strings.Contains(fold.String(coltype.Text(v)), needle) {
				out = append(out, i)
				break
			}
		}
	}
	m.working = out
}

// ChangeSort reorders the working set locally and returns the command that
// asks the host for the same ordering. Without multi, clicking the current
// sort column flips its direction and any other column sorts ascending.
// With multi, the column is appended ascending or, if already present, its
// direction flips. Switching modes drops the other mode's ordering.
func (m *Mirror) ChangeSort(column string, multi bool) protocol.Sort {
	if multi {
		if m.sortMode != SortMulti {
			m.sortColumns = nil
		}
		m.sortMode = SortMulti
		m.sortColumn, m.sortDirection = "", ""

		i := slices.IndexFunc(m.sortColumns, func(k core.SortKey) bool { return k.Column == column })
		if i >= 0 {
			m.sortColumns[i].Direction = m.sortColumns[i].Direction.Toggle()
		} else {
			m.sortColumns = append(m.sortColumns, core.SortKey{Column: column, Direction: core.Asc})
		}
		m.sortLocally()
		return protocol.Sort{
			SortColumns: slices.Clone(m.sortColumns),
			Filters:     slices.Clone(m.filters),
		}
	}

	if m.sortMode == SortSingle && m.sortColumn == column {
		m.sortDirection = m.sortDirection.Toggle()
	} else {
		m.sortColumn, m.sortDirection = column, core.Asc
	}
	m.sortMode = SortSingle
	m.sortColumns = nil
	m.sortLocally()
	return protocol.Sort{Column: m.sortColumn, Direction: string(m.sortDirection)}
}

// SortKeys returns the active ordering as a list of keys.
func (m *Mirror) SortKeys() []core.SortKey {
	switch m.sortMode {
	case SortSingle:
		return []core.SortKey{{Column: m.sortColumn, Direction: m.sortDirection}}
	case SortMulti:
		return slices.Clone(m.sortColumns)
	}
	return nil
}

func (m *Mirror) sortLocally() {
	keys := m.SortKeys()
	if len(keys) == 0 {
		return
	}
	slices.SortStableFunc(m.working, func(i, j int) int {
		a, b := m.fullPage[i], m.fullPage[j]
		for _, k := range keys {
			c := coltype.Compare(a[k.Column], b[k.Column], m.Type(k.Column))
			if k.Direction == core.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// NextPage returns the command for the following page, or nil on the last.
func (m *Mirror) NextPage() protocol.Command {
	return m.GoToPage(m.currentPage + 1)
}

// PrevPage returns the command for the preceding page, or nil on the first.
func (m *Mirror) PrevPage() protocol.Command {
	return m.GoToPage(m.currentPage - 1)
}

// GoToPage returns the command for page, or nil when page is out of range.
func (m *Mirror) GoToPage(page int) protocol.Command {
	if page < 1 || page > m.totalPages {
		return nil
	}
	return protocol.Navigate{Page: page, PageSize: m.pageSize}
}

// SetPageSize returns the command that restarts at page 1 with size rows
// per page, or nil for a non-positive size.
func (m *Mirror) SetPageSize(size int) protocol.Command {
	if size <= 0 {
		return nil
	}
	return protocol.Navigate{Page: 1, PageSize: size}
}

// AddFilter appends f to the requested filters.
func (m *Mirror) AddFilter(f core.Filter) protocol.Command {
	return m.ApplyFilters(append(slices.Clone(m.filters), f))
}

// ApplyFilters replaces the requested filters.
func (m *Mirror) ApplyFilters(filters []core.Filter) protocol.Command {
	m.filters = slices.Clone(filters)
	if m.filters == nil {
		m.filters = []core.Filter{}
	}
	return protocol.Filter{Filters: slices.Clone(m.filters)}
}

// ClearFilters drops every requested filter and the quick search.
func (m *Mirror) ClearFilters() protocol.Command {
	m.filters = nil
	m.ApplyQuickFilter("")
	return protocol.ClearFilters{}
}
