package client

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/leapview/internal/client/coltype"
)

// ToggleSelect flips the selection of the full-page row at index. It
// reports whether the row is now selected; out of range indexes are
// ignored.
func (m *Mirror) ToggleSelect(index int) bool {
	if index < 0 || index >= len(m.fullPage) {
		return false
	}
	if m.selected[index] {
		delete(m.selected, index)
		return false
	}
	m.selected[index] = true
	return true
}

// SelectAll selects every row of the full page.
func (m *Mirror) SelectAll() {
	for i := range m.fullPage {
		m.selected[i] = true
	}
}

// ClearSelection deselects every row.
func (m *Mirror) ClearSelection() {
	m.selected = map[int]bool{}
}

// IsSelected reports whether the full-page row at index is selected.
func (m *Mirror) IsSelected(index int) bool {
	return m.selected[index]
}

// Selected returns the selected full-page row indexes in ascending order.
func (m *Mirror) Selected() []int {
	out := make([]int, 0, len(m.selected))
	for i := range m.selected {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// SelectedText renders the selected rows as tab separated text with a
// header line. NULL values are written as NULL. It is empty when nothing
// is selected.
func (m *Mirror) SelectedText() string {
	rows := m.Selected()
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(strings.Join(m.names, "\t"))
	for _, i := range rows {
		b.WriteByte('\n')
		row := m.fullPage[i]
		for j, col := range m.names {
			if j > 0 {
				b.WriteByte('\t')
			}
			v := row[col]
			if v == nil {
				b.WriteString("NULL")
				continue
			}
			b.WriteString(coltype.Text(v))
		}
	}
	return b.String()
}
