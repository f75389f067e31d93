package repl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/leapview/internal/cli/output"
	"github.com/leapstack-labs/leapview/internal/client"
)

// renderView draws the render model as a table followed by the status
// line. The first column holds the 1-based row number, starred when the
// row is selected.
func renderView(w io.Writer, r *output.Renderer, model client.RenderModel) {
	styles := r.Styles()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	if width := r.Width(); width > 0 {
		t.SetAllowedRowLength(width)
	}

	header := make(table.Row, 0, len(model.Headers)+1)
	header = append(header, "#")
	configs := make([]table.ColumnConfig, 0, len(model.Headers))
	for i, h := range model.Headers {
		label := h.Label()
		if h.PrimaryKey {
			label += " (pk)"
		}
		header = append(header, label)
		if h.Type.IsNumeric() {
			configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight})
		}
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for i, cells := range model.Rows {
		row := make(table.Row, 0, len(cells)+1)
		if model.Empty {
			row = append(row, "")
		} else {
			marker := strconv.Itoa(model.Index[i] + 1)
			if model.Selected[i] {
				marker = "*" + marker
			}
			row = append(row, marker)
		}
		for _, c := range cells {
			row = append(row, c)
		}
		t.AppendRow(row)
	}
	t.Render()

	_, _ = fmt.Fprintln(w, styles.Muted.Render(model.Status))
}
