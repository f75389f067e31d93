package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DefaultPageSize is the page size of a freshly opened view.
const DefaultPageSize = 100

// ErrNoActiveView is returned when a command targets a view that is not open.
var ErrNoActiveView = errors.New("no active table view")

// ViewID identifies one table view: a table within a database on a named connection.
type ViewID struct {
	Connection string `json:"connection"`
	Database   string `json:"database"`
	Table      string `json:"table"`
}

// String renders the id as connection/database/table.
func (id ViewID) String() string {
	return id.Connection + "/" + id.Database + "/" + id.Table
}

// ParseViewID parses the connection/database/table form produced by String.
func ParseViewID(s string) (ViewID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return ViewID{}, fmt.Errorf("invalid view id %q: expected connection/database/table", s)
	}
	return ViewID{Connection: parts[0], Database: parts[1], Table: parts[2]}, nil
}

// Operator is a filter comparison operator.
type Operator string

// Supported filter operators.
const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpLike         Operator = "LIKE"
	OpIn           Operator = "IN"
	OpNotIn        Operator = "NOT IN"
	OpIsNull       Operator = "IS NULL"
	OpIsNotNull    Operator = "IS NOT NULL"
)

// Operators lists the supported operators in display order.
var Operators = []Operator{
	OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual,
	OpLike, OpIn, OpNotIn, OpIsNull, OpIsNotNull,
}

// TakesValue reports whether the operator uses the filter value.
func (o Operator) TakesValue() bool {
	return o != OpIsNull && o != OpIsNotNull
}

// ParseOperator normalizes user input such as "not in" or "is null".
// Unknown operators are returned verbatim upper-cased.
func ParseOperator(s string) Operator {
	return Operator(strings.ToUpper(strings.Join(strings.Fields(s), " ")))
}

// Filter is a single column predicate.
type Filter struct {
	Column   string   `json:"column" validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    string   `json:"value"`
}

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps any case of "desc" to Desc and everything else to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// SQL returns the ORDER BY keyword for the direction.
func (d Direction) SQL() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Toggle flips the direction.
func (d Direction) Toggle() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// SortKey is one entry of a multi-column sort.
type SortKey struct {
	Column    string    `json:"column" validate:"required"`
	Direction Direction `json:"direction,omitempty" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// SortSpec requests either a single-column or a multi-column sort.
// Multi takes precedence when both are set. The zero value means unordered.
type SortSpec struct {
	Single *SortKey
	Multi  []SortKey
}

// SingleSort builds a single-column sort spec.
func SingleSort(column string, dir Direction) SortSpec {
	return SortSpec{Single: &SortKey{Column: column, Direction: dir}}
}

// MultiSort builds a multi-column sort spec.
func MultiSort(keys ...SortKey) SortSpec {
	return SortSpec{Multi: keys}
}

// IsEmpty reports whether the spec requests no ordering.
func (s SortSpec) IsEmpty() bool {
	return len(s.Multi) == 0 && (s.Single == nil || s.Single.Column == "")
}

// SourceKind selects where a view's rows come from.
type SourceKind int

const (
	// SourceTable rows come from the builder query over the view's table.
	SourceTable SourceKind = iota
	// SourceCustom rows come from a raw query supplied by the client.
	SourceCustom
)

// TableViewState is the host-authoritative state of one view.
//
// At most one of SortColumn and SortColumns is set, and any change to
// Filters resets Page to 1. Transitions return a new value and never
// mutate the receiver.
type TableViewState struct {
	Page          int
	PageSize      int
	SortColumn    string
	SortDirection Direction
	SortColumns   []SortKey
	Filters       []Filter
	Source        SourceKind
	CustomQuery   string
}

// NewTableViewState returns the initial state of a view.
func NewTableViewState(pageSize int) TableViewState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return TableViewState{Page: 1, PageSize: pageSize, SortDirection: Asc}
}

// Clone returns a deep copy.
func (s TableViewState) Clone() TableViewState {
	s.SortColumns = slices.Clone(s.SortColumns)
	s.Filters = slices.Clone(s.Filters)
	return s
}

// WithPage moves to page and, when pageSize is positive, changes the page size.
func (s TableViewState) WithPage(page, pageSize int) TableViewState {
	next := s.Clone().asTable()
	if page < 1 {
		page = 1
	}
	next.Page = page
	if pageSize > 0 {
		next.PageSize = pageSize
	}
	return next
}

// WithSort replaces the ordering. An empty spec clears both sort forms.
func (s TableViewState) WithSort(spec SortSpec) TableViewState {
	next := s.Clone().asTable()
	switch {
	case len(spec.Multi) > 0:
		next.SortColumns = make([]SortKey, len(spec.Multi))
		for i, k := range spec.Multi {
			next.SortColumns[i] = SortKey{Column: k.Column, Direction: ParseDirection(string(k.Direction))}
		}
		next.SortColumn = ""
	case spec.Single != nil && spec.Single.Column != "":
		next.SortColumn = spec.Single.Column
		next.SortDirection = ParseDirection(string(spec.Single.Direction))
		next.SortColumns = nil
	default:
		next.SortColumn = ""
		next.SortDirection = Asc
		next.SortColumns = nil
	}
	return next
}

// WithFilters replaces the filters, resets to page 1 and, if sort is
// non-empty, replaces the ordering in the same transition.
func (s TableViewState) WithFilters(filters []Filter, sort SortSpec) TableViewState {
	next := s.Clone().asTable()
	next.Filters = slices.Clone(filters)
	next.Page = 1
	if !sort.IsEmpty() {
		next = next.WithSort(sort)
	}
	return next
}

// Cleared drops all filters and returns to page 1. Ordering is kept.
func (s TableViewState) Cleared() TableViewState {
	next := s.Clone().asTable()
	next.Filters = nil
	next.Page = 1
	return next
}

// WithCustomQuery switches the view to a raw query.
func (s TableViewState) WithCustomQuery(query string) TableViewState {
	next := s.Clone()
	next.Source = SourceCustom
	next.CustomQuery = query
	return next
}

// Sort returns the current ordering as a spec.
func (s TableViewState) Sort() SortSpec {
	if len(s.SortColumns) > 0 {
		return MultiSort(slices.Clone(s.SortColumns)...)
	}
	if s.SortColumn != "" {
		return SingleSort(s.SortColumn, s.SortDirection)
	}
	return SortSpec{}
}

func (s TableViewState) asTable() TableViewState {
	s.Source = SourceTable
	s.CustomQuery = ""
	return s
}
