package client

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/leapstack-labs/leapview/internal/client/coltype"
	"github.com/leapstack-labs/leapview/pkg/core"
)

// NoData is the single cell shown when the working set is empty.
const NoData = "No data"

// Header describes one rendered column heading.
type Header struct {
	Name       string
	Type       coltype.Type
	PrimaryKey bool
	// Indicator is the sort arrow, prefixed by the key position in multi
	// mode, or empty.
	Indicator string
}

// Label is the header text shown to the user.
func (h Header) Label() string {
	if h.Indicator == "" {
		return h.Name
	}
	return h.Name + " " + h.Indicator
}

// RenderModel is everything a surface needs to draw the view.
type RenderModel struct {
	Headers []Header
	// Rows holds formatted cells. When Empty is set it holds a single row
	// with NoData in the first cell.
	Rows     [][]string
	Selected []bool
	// Index maps each rendered row to its full-page index.
	Index  []int
	Empty  bool
	Status string
	Error  string
	Notice string
}

// View builds the render model of the working set. Cells are truncated
// unless full is set.
func (m *Mirror) View(full bool) RenderModel {
	model := RenderModel{
		Headers: m.headers(),
		Status:  m.Status(),
		Error:   m.lastError,
		Notice:  m.lastNotice,
	}

	if len(m.working) == 0 {
		row := make([]string, max(len(m.names), 1))
		row[0] = NoData
		model.Rows = [][]string{row}
		model.Selected = []bool{false}
		model.Empty = true
		return model
	}

	model.Rows = make([][]string, len(m.working))
	model.Selected = make([]bool, len(m.working))
	model.Index = slices.Clone(m.working)
	for r, idx := range m.working {
		row := m.fullPage[idx]
		cells := make([]string, len(m.names))
		for c, col := range m.names {
			cells[c] = coltype.FormatCell(row[col], m.Type(col), full)
		}
		model.Rows[r] = cells
		model.Selected[r] = m.selected[idx]
	}
	return model
}

// Status summarises position and counts, e.g. "Page 2 of 10 · 1,000 rows".
func (m *Mirror) Status() string {
	s := fmt.Sprintf("Page %d of %d · %s rows", m.currentPage, m.totalPages, humanize.Comma(m.rowCount))
	if m.quickFilter != "" {
		s += fmt.Sprintf(" · %d shown", len(m.working))
	}
	if n := len(m.selected); n > 0 {
		s += fmt.Sprintf(" · %d selected", n)
	}
	if n := len(m.filters); n > 0 {
		s += fmt.Sprintf(" · %d %s", n, plural(n, "filter", "filters"))
	}
	return s
}

func (m *Mirror) headers() []Header {
	keys := m.SortKeys()
	headers := make([]Header, len(m.names))
	for i, col := range m.columns {
		h := Header{Name: col.Name, Type: m.Type(col.Name), PrimaryKey: col.PrimaryKey}
		if k := slices.IndexFunc(keys, func(k core.SortKey) bool { return k.Column == col.Name }); k >= 0 {
			arrow := "▲"
			if keys[k].Direction == core.Desc {
				arrow = "▼"
			}
			if m.sortMode == SortMulti {
				arrow = fmt.Sprintf("%d%s", k+1, arrow)
			}
			h.Indicator = arrow
		}
		headers[i] = h
	}
	return headers
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
