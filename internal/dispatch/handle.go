package dispatch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/leapstack-labs/leapview/internal/export"
	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/leapstack-labs/leapview/pkg/query"
)

func (d *Dispatcher) handle(ctx context.Context, s *session, cmd protocol.Command) {
	id := s.id
	switch c := cmd.(type) {
	case protocol.Ready:
		d.respond(ctx, s, c.Name(), func() (core.TableViewState, error) {
			return d.store.Get(id)
		})
	case protocol.Refresh:
		d.respond(ctx, s, c.Name(), func() (core.TableViewState, error) {
			return d.store.Refresh(id)
		})
	case protocol.Navigate:
		d.respond(ctx, s, c.Name(), func() (core.TableViewState, error) {
			return d.store.Navigate(id, c.Page, c.PageSize)
		})
	case protocol.Sort:
		d.respond(ctx, s, c.Name(), func() (core.TableViewState, error) {
			return d.store.Sort(id, c.Spec(), c.Filters)
		})
	case protocol.Filter:
		d.respond(ctx, s, c.Name(), func() (core.TableViewState, error) {
			return d.store.ApplyFilters(id, c.Filters, c.Spec())
		})
	case protocol.ClearFilters:
		d.respond(ctx, s, c.Name(), func() (core.TableViewState, error) {
			return d.store.Clear(id)
		})
	case protocol.ExecuteQuery:
		d.respond(ctx, s, c.Name(), func() (core.TableViewState, error) {
			return d.store.UseCustomQuery(id, c.Query)
		})
	case protocol.Export:
		if err := d.export(ctx, s, c); err != nil {
			d.fail(s, c.Name(), err)
		}
	case protocol.CopyToClipboard:
		if err := d.opts.Clipboard.WriteText(c.Text); err != nil {
			d.fail(s, c.Name(), fmt.Errorf("failed to copy to clipboard: %w", err))
			return
		}
		d.notify(s, "Copied to clipboard")
	default:
		s.logger.Warn("unhandled command", "command", cmd.Name())
	}
}

// respond applies transition and pushes the resulting page. A failed query
// keeps the new state and reports the error instead of data.
func (d *Dispatcher) respond(ctx context.Context, s *session, command string, transition func() (core.TableViewState, error)) {
	state, err := transition()
	if err != nil {
		d.fail(s, command, err)
		return
	}
	update, err := d.load(ctx, s, state)
	if err != nil {
		d.fail(s, command, err)
		return
	}
	if err := protocol.SendMessage(s.conn, update); err != nil {
		s.logger.Warn("failed to push update", "error", err)
	}
}

// load runs the query for state and assembles the page update.
func (d *Dispatcher) load(ctx context.Context, s *session, state core.TableViewState) (protocol.UpdateData, error) {
	qctx, cancel := d.queryContext(ctx)
	defer cancel()

	if state.Source == core.SourceCustom {
		res, err := s.execute(qctx, state.CustomQuery)
		if err != nil {
			return protocol.UpdateData{}, err
		}
		// A custom result arrives whole, so it is reported as a single
		// page. Clients must not offer navigation that would silently
		// switch the view back to its table.
		return protocol.UpdateData{
			Data: protocol.PageData{
				Rows:     res.Rows,
				Columns:  resultColumns(res.Columns, s.columns),
				RowCount: int64(len(res.Rows)),
			},
			Page:     1,
			PageSize: max(len(res.Rows), 1),
		}, nil
	}

	sql := query.Build(s.id.Table, state, query.ModePage)
	s.logger.Debug("loading page", "page", state.Page, "query", sql)
	res, err := s.execute(qctx, sql)
	if err != nil {
		return protocol.UpdateData{}, err
	}
	total, err := d.count(qctx, s, state)
	if err != nil {
		return protocol.UpdateData{}, err
	}
	return protocol.UpdateData{
		Data: protocol.PageData{
			Rows:     res.Rows,
			Columns:  s.columns,
			RowCount: total,
		},
		Page:     state.Page,
		PageSize: state.PageSize,
	}, nil
}

func (d *Dispatcher) count(ctx context.Context, s *session, state core.TableViewState) (int64, error) {
	res, err := s.execute(ctx, query.BuildCount(s.id.Table, state))
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 || len(res.Columns) == 0 {
		return 0, fmt.Errorf("count query for %s returned no rows", s.id.Table)
	}
	return countValue(res.Rows[0][res.Columns[0]])
}

func (d *Dispatcher) export(ctx context.Context, s *session, c protocol.Export) error {
	enc, err := export.For(c.Format)
	if err != nil {
		return err
	}
	state, err := d.store.Get(s.id)
	if err != nil {
		return err
	}

	var sql string
	switch {
	case state.Source == core.SourceCustom:
		sql = state.CustomQuery
	case c.SelectedOnly:
		sql = query.Build(s.id.Table, state, query.ModeExport)
	default:
		sql = query.SelectAll(s.id.Table)
	}

	qctx, cancel := d.queryContext(ctx)
	defer cancel()
	res, err := s.execute(qctx, sql)
	if err != nil {
		return err
	}
	out, err := export.Write(d.opts.Exports, enc, s.id.Table, res)
	if err != nil {
		return err
	}
	s.logger.Info("exported view", "format", enc.Extension(), "rows", out.Rows, "destination", out.Destination)
	d.notify(s, fmt.Sprintf("Table %q exported as %s to %s (%s rows)",
		s.id.Table, enc.Extension(), out.Destination, humanize.Comma(int64(out.Rows))))
	return nil
}

func (d *Dispatcher) fail(s *session, command string, err error) {
	s.logger.Error("command failed", "command", command, "error", err)
	if sendErr := protocol.SendMessage(s.conn, protocol.Error{Message: err.Error(), Command: command}); sendErr != nil {
		s.logger.Warn("failed to push error", "error", sendErr)
	}
}

func (d *Dispatcher) notify(s *session, message string) {
	if err := protocol.SendMessage(s.conn, protocol.Notice{Message: message}); err != nil {
		s.logger.Warn("failed to push notice", "error", err)
	}
}

func (d *Dispatcher) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.opts.QueryTimeout > 0 {
		return context.WithTimeout(ctx, d.opts.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

// resultColumns describes the columns of a custom result, reusing table
// metadata for names the table also has.
func resultColumns(names []string, described []core.Column) []core.Column {
	byName := make(map[string]core.Column, len(described))
	for _, c := range described {
		byName[c.Name] = c
	}
	cols := make([]core.Column, len(names))
	for i, name := range names {
		col, ok := byName[name]
		if !ok {
			col = core.Column{Name: name, Nullable: true}
		}
		col.Position = i + 1
		cols[i] = col
	}
	return cols
}

func countValue(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil //nolint:gosec // row counts fit in int64
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count value %T", v)
	}
}
