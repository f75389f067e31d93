// Package repl is an interactive terminal client for one table view.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapview/internal/cli/output"
	"github.com/leapstack-labs/leapview/internal/client"
	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/pkg/core"
)

// DefaultReplyTimeout bounds the wait for the host's answer to a command.
const DefaultReplyTimeout = 30 * time.Second

// Options configures a REPL.
type Options struct {
	Client      *client.Client
	View        core.ViewID
	Renderer    *output.Renderer
	HistoryFile string
	Logger      *slog.Logger
	// ReplyTimeout bounds each wait for a host message.
	ReplyTimeout time.Duration
}

// REPL reads commands, forwards them to the host and redraws the view.
type REPL struct {
	client  *client.Client
	view    core.ViewID
	r       *output.Renderer
	history string
	logger  *slog.Logger
	timeout time.Duration
	full    bool
	// late counts replies still owed by the host for commands whose wait
	// timed out. The host answers every command exactly once, in order.
	late int
}

// New creates a REPL.
func New(opts Options) *REPL {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := opts.ReplyTimeout
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	return &REPL{
		client:  opts.Client,
		view:    opts.View,
		r:       opts.Renderer,
		history: opts.HistoryFile,
		logger:  logger,
		timeout: timeout,
	}
}

// Start waits for the first page and draws it.
func (p *REPL) Start(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	msg, err := p.client.Await(wctx, protocol.MsgUpdateData)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", p.view, err)
	}
	if e, ok := msg.(protocol.Error); ok {
		return fmt.Errorf("failed to load %s: %s", p.view, e.Message)
	}
	p.render()
	return nil
}

// Run reads lines until quit or end of input.
func (p *REPL) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          p.prompt(),
		HistoryFile:     p.history,
		AutoComplete:    p.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          p.r.Out(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	p.r.Muted("Type help for commands, quit to exit")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := p.Exec(ctx, line)
		if err != nil {
			p.r.Error(err.Error())
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Exec runs one command line and reports whether the session should end.
func (p *REPL) Exec(ctx context.Context, line string) (bool, error) {
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	args = strings.TrimSpace(args)
	m := p.client.Mirror()

	switch strings.ToLower(name) {
	case "":
		return false, nil

	case "quit", "exit", "q":
		return true, nil

	case "help", "?":
		printHelp(p.r.Out())
		return false, nil

	case "next", "n":
		cmd := m.NextPage()
		if cmd == nil {
			return false, errors.New("already on the last page")
		}
		return false, p.roundTrip(ctx, cmd)

	case "prev", "p":
		cmd := m.PrevPage()
		if cmd == nil {
			return false, errors.New("already on the first page")
		}
		return false, p.roundTrip(ctx, cmd)

	case "page":
		n, err := intArg("page", args)
		if err != nil {
			return false, err
		}
		cmd := m.GoToPage(n)
		if cmd == nil {
			return false, fmt.Errorf("page %d out of range 1-%d", n, m.TotalPages())
		}
		return false, p.roundTrip(ctx, cmd)

	case "size":
		n, err := intArg("size", args)
		if err != nil {
			return false, err
		}
		cmd := m.SetPageSize(n)
		if cmd == nil {
			return false, errors.New("page size must be positive")
		}
		return false, p.roundTrip(ctx, cmd)

	case "sort", "sort+":
		column, err := p.column(args)
		if err != nil {
			return false, err
		}
		return false, p.roundTrip(ctx, m.ChangeSort(column, strings.EqualFold(name, "sort+")))

	case "filter":
		f, err := ParseFilter(args)
		if err != nil {
			return false, err
		}
		if f.Column, err = p.column(f.Column); err != nil {
			return false, err
		}
		return false, p.roundTrip(ctx, m.AddFilter(f))

	case "filters":
		filters := m.Filters()
		if len(filters) == 0 {
			p.r.Muted("no filters")
		}
		for i, f := range filters {
			p.r.Printf("%d. %s %s %s\n", i+1, f.Column, f.Operator, f.Value)
		}
		return false, nil

	case "clear":
		return false, p.roundTrip(ctx, m.ClearFilters())

	case "find":
		m.ApplyQuickFilter(args)
		p.render()
		return false, nil

	case "refresh", "r":
		return false, p.roundTrip(ctx, protocol.Refresh{})

	case "sql":
		if args == "" {
			return false, errors.New("usage: sql <query>")
		}
		return false, p.roundTrip(ctx, protocol.ExecuteQuery{Query: strings.TrimSuffix(args, ";")})

	case "export":
		format, rest, _ := strings.Cut(args, " ")
		if format == "" {
			return false, errors.New("usage: export <csv|json|sql|yaml> [filtered]")
		}
		rest = strings.ToLower(strings.TrimSpace(rest))
		selected := rest == "filtered" || rest == "selected"
		return false, p.roundTrip(ctx, protocol.Export{Format: strings.ToLower(format), SelectedOnly: selected})

	case "select":
		if err := p.selectRows(args); err != nil {
			return false, err
		}
		p.render()
		return false, nil

	case "copy":
		text := m.SelectedText()
		if text == "" {
			return false, errors.New("no rows selected")
		}
		return false, p.roundTrip(ctx, protocol.CopyToClipboard{Text: text})

	case "full":
		p.full = !p.full
		p.render()
		return false, nil

	case "columns":
		for _, col := range m.Columns() {
			p.r.Println(output.FormatField(col.Name, fmt.Sprintf("%s (%s)", col.Type, m.Type(col.Name)), 20))
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %q (type help for commands)", name)
	}
}

// roundTrip sends cmd and applies the host's answer.
func (p *REPL) roundTrip(ctx context.Context, cmd protocol.Command) error {
	if err := p.client.Send(cmd); err != nil {
		return err
	}
	msg, err := p.reply(ctx, cmd)
	if err != nil {
		return err
	}
	p.logger.Debug("host replied", "command", cmd.Name(), "message", msg.Name())

	switch v := msg.(type) {
	case protocol.Error:
		return errors.New(v.Message)
	case protocol.Notice:
		p.r.Info(v.Message)
	case protocol.UpdateData:
		p.render()
	}
	return nil
}

// reply waits for the host's answer to cmd, first consuming answers to
// earlier commands that timed out.
func (p *REPL) reply(ctx context.Context, cmd protocol.Command) (protocol.Message, error) {
	wctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	for {
		msg, err := p.client.Next(wctx)
		if err != nil {
			p.late++
			return nil, fmt.Errorf("no reply to %s: %w", cmd.Name(), err)
		}
		if p.late > 0 {
			p.late--
			p.logger.Debug("skipping late reply", "message", msg.Name())
			continue
		}
		return msg, nil
	}
}

func (p *REPL) render() {
	renderView(p.r.Out(), p.r, p.client.Mirror().View(p.full))
}

func (p *REPL) prompt() string {
	return p.view.Table + "> "
}

// column resolves a column name case-insensitively against the page.
func (p *REPL) column(name string) (string, error) {
	if name == "" {
		return "", errors.New("a column name is required")
	}
	names := p.client.Mirror().ColumnNames()
	if i := slices.IndexFunc(names, func(n string) bool { return strings.EqualFold(n, name) }); i >= 0 {
		return names[i], nil
	}
	return "", fmt.Errorf("unknown column %q", name)
}

// selectRows handles "all", "none" and comma separated 1-based row numbers,
// which toggle.
func (p *REPL) selectRows(args string) error {
	m := p.client.Mirror()
	switch strings.ToLower(args) {
	case "":
		return errors.New("usage: select <n[,n...]|all|none>")
	case "all":
		m.SelectAll()
		return nil
	case "none":
		m.ClearSelection()
		return nil
	}
	for _, part := range strings.Split(args, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > len(m.FullPage()) {
			return fmt.Errorf("invalid row %q", strings.TrimSpace(part))
		}
		m.ToggleSelect(n - 1)
	}
	return nil
}

func (p *REPL) completer() *readline.PrefixCompleter {
	columns := readline.PcItemDynamic(func(string) []string {
		return p.client.Mirror().ColumnNames()
	})
	return readline.NewPrefixCompleter(
		readline.PcItem("next"),
		readline.PcItem("prev"),
		readline.PcItem("page"),
		readline.PcItem("size"),
		readline.PcItem("sort", columns),
		readline.PcItem("sort+", columns),
		readline.PcItem("filter", columns),
		readline.PcItem("filters"),
		readline.PcItem("clear"),
		readline.PcItem("find"),
		readline.PcItem("refresh"),
		readline.PcItem("sql"),
		readline.PcItem("export",
			readline.PcItem("csv", readline.PcItem("filtered")),
			readline.PcItem("json", readline.PcItem("filtered")),
			readline.PcItem("sql", readline.PcItem("filtered")),
			readline.PcItem("yaml", readline.PcItem("filtered")),
		),
		readline.PcItem("select", readline.PcItem("all"), readline.PcItem("none")),
		readline.PcItem("copy"),
		readline.PcItem("full"),
		readline.PcItem("columns"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func intArg(name, args string) (int, error) {
	n, err := strconv.Atoi(args)
	if err != nil {
		return 0, fmt.Errorf("usage: %s <n>", name)
	}
	return n, nil
}

// ParseFilter parses "<column> <operator> [value]", e.g. "age >= 40" or
// "email is not null".
func ParseFilter(args string) (core.Filter, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return core.Filter{}, errors.New("usage: filter <column> <operator> [value]")
	}
	column, rest := fields[0], strings.Join(fields[1:], " ")
	upper := strings.ToUpper(rest)

	ops := slices.Clone(core.Operators)
	slices.SortStableFunc(ops, func(a, b core.Operator) int { return len(b) - len(a) })
	for _, op := range ops {
		if !strings.HasPrefix(upper, string(op)) {
			continue
		}
		tail := rest[len(op):]
		if isWord(op) && tail != "" && tail[0] != ' ' {
			continue
		}
		value := strings.TrimSpace(tail)
		switch {
		case op.TakesValue() && value == "":
			return core.Filter{}, fmt.Errorf("operator %s needs a value", op)
		case !op.TakesValue() && value != "":
			return core.Filter{}, fmt.Errorf("operator %s takes no value", op)
		}
		return core.Filter{Column: column, Operator: op, Value: value}, nil
	}
	return core.Filter{}, fmt.Errorf("unknown operator in %q", rest)
}

func isWord(op core.Operator) bool {
	c := op[len(op)-1]
	return c >= 'A' && c <= 'Z'
}

// Verb documents one REPL command.
type Verb struct {
	Group   string
	Usage   string
	Summary string
}

// Verbs lists the REPL commands in help order.
var Verbs = []Verb{
	{"Navigation", "next | prev", "Next or previous page"},
	{"Navigation", "page <n>", "Go to page n"},
	{"Navigation", "size <n>", "Rows per page (restarts at page 1)"},
	{"Navigation", "refresh", "Reload the current page"},
	{"Ordering and filtering", "sort <column>", "Sort by one column; repeat to flip direction"},
	{"Ordering and filtering", "sort+ <column>", "Add a column to a multi-column sort"},
	{"Ordering and filtering", "filter <col> <op> [v]", "Add a filter (=, !=, >, <, >=, <=, LIKE, IN, NOT IN, IS NULL, IS NOT NULL)"},
	{"Ordering and filtering", "filters", "List active filters"},
	{"Ordering and filtering", "clear", "Drop all filters and the quick search"},
	{"Ordering and filtering", "find <text>", "Quick search within the page (no text clears it)"},
	{"Other", "sql <query>", "Run a custom query in this view; its result is one page"},
	{"Other", "export <fmt> [filtered]", "Export the table as csv, json, sql or yaml; filtered keeps the current filters and sort"},
	{"Other", "select <n,..|all|none>", "Toggle row selection"},
	{"Other", "copy", "Copy selected rows as tab separated text"},
	{"Other", "full", "Toggle untruncated cells"},
	{"Other", "columns", "Show column types"},
	{"Other", "quit", "Exit"},
}

func printHelp(w io.Writer) {
	group := ""
	for _, v := range Verbs {
		if v.Group != group {
			group = v.Group
			_, _ = fmt.Fprintf(w, "\n%s:\n", group)
		}
		_, _ = fmt.Fprintf(w, "  %-24s %s\n", v.Usage, v.Summary)
	}
	_, _ = fmt.Fprintln(w)
}
