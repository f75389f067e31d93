// Package protocol defines the messages exchanged between the host that owns
// a table view and the client that renders it, their JSON envelope and the
// in-process channel that carries them.
package protocol

import "github.com/leapstack-labs/leapview/pkg/core"

// Command names as they appear in the "command" field of the envelope.
const (
	CmdReady           = "ready"
	CmdRefresh         = "refresh"
	CmdNavigate        = "navigate"
	CmdSort            = "sort"
	CmdFilter          = "filter"
	CmdClearFilters    = "clearFilters"
	CmdExecuteQuery    = "executeQuery"
	CmdExport          = "export"
	CmdCopyToClipboard = "copyToClipboard"
)

// Command is a client to host control message.
type Command interface {
	Name() string
}

// Ready asks the host to push the view's current data.
type Ready struct{}

// Refresh re-runs the view's table query with the current state.
type Refresh struct{}

// Navigate moves to Page. PageSize zero keeps the current page size.
type Navigate struct {
	Page     int `json:"page" validate:"gte=1"`
	PageSize int `json:"pageSize,omitempty" validate:"gte=0"`
}

// Sort replaces the view ordering. SortColumns wins over Column when both
// are set. Filters, when present (including an empty list), replace the
// view filters in the same transition.
type Sort struct {
	Column      string         `json:"column,omitempty"`
	Direction   string         `json:"direction,omitempty" validate:"omitempty,oneof=asc desc ASC DESC"`
	SortColumns []core.SortKey `json:"sortColumns,omitempty" validate:"omitempty,dive"`
	Filters     []core.Filter  `json:"filters" validate:"omitempty,dive"`
}

// Filter replaces the view filters and optionally the ordering.
type Filter struct {
	Filters       []core.Filter  `json:"filters" validate:"omitempty,dive"`
	SortColumn    string         `json:"sortColumn,omitempty"`
	SortDirection string         `json:"sortDirection,omitempty" validate:"omitempty,oneof=asc desc ASC DESC"`
	SortColumns   []core.SortKey `json:"sortColumns,omitempty" validate:"omitempty,dive"`
}

// ClearFilters drops every filter and returns to page 1.
type ClearFilters struct{}

// ExecuteQuery runs Query verbatim as the view's data source.
type ExecuteQuery struct {
	Query string `json:"query" validate:"required"`
}

// Export writes the view's rows in Format. SelectedOnly exports the rows
// matching the current filters and sort instead of the whole table.
type Export struct {
	Format       string `json:"format" validate:"required,oneof=csv json sql yaml"`
	SelectedOnly bool   `json:"selectedOnly"`
}

// CopyToClipboard hands Text to the host clipboard.
type CopyToClipboard struct {
	Text string `json:"text" validate:"required"`
}

func (Ready) Name() string           { return CmdReady }
func (Refresh) Name() string         { return CmdRefresh }
func (Navigate) Name() string        { return CmdNavigate }
func (Sort) Name() string            { return CmdSort }
func (Filter) Name() string          { return CmdFilter }
func (ClearFilters) Name() string    { return CmdClearFilters }
func (ExecuteQuery) Name() string    { return CmdExecuteQuery }
func (Export) Name() string          { return CmdExport }
func (CopyToClipboard) Name() string { return CmdCopyToClipboard }

// Commands returns the zero value of every command in vocabulary order.
func Commands() []Command {
	return []Command{
		Ready{}, Refresh{}, Navigate{}, Sort{}, Filter{},
		ClearFilters{}, ExecuteQuery{}, Export{}, CopyToClipboard{},
	}
}

// Spec converts the command's sort fields into a core.SortSpec.
func (c Sort) Spec() core.SortSpec {
	return sortSpec(c.Column, c.Direction, c.SortColumns)
}

// Spec converts the command's optional sort fields into a core.SortSpec.
func (c Filter) Spec() core.SortSpec {
	return sortSpec(c.SortColumn, c.SortDirection, c.SortColumns)
}

func sortSpec(column, direction string, keys []core.SortKey) core.SortSpec {
	if len(keys) > 0 {
		return core.MultiSort(keys...)
	}
	if column != "" {
		return core.SingleSort(column, core.ParseDirection(direction))
	}
	return core.SortSpec{}
}
