package protocol

import "github.com/leapstack-labs/leapview/pkg/core"

// Host message names.
const (
	MsgUpdateData = "updateData"
	MsgError      = "error"
	MsgNotice     = "notice"
)

// Message is a host to client message.
type Message interface {
	Name() string
}

// PageData is the data block of an update.
type PageData struct {
	Rows     []core.Record `json:"data"`
	Columns  []core.Column `json:"columns"`
	RowCount int64         `json:"rowCount"`
}

// UpdateData carries one page of authoritative rows.
type UpdateData struct {
	Data     PageData `json:"data"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
}

// Error reports a failed command. The view state keeps the mutation that
// preceded the failure. Command is carried as "failedCommand" on the wire
// since "command" names the envelope.
type Error struct {
	Message string `json:"message"`
	Command string `json:"failedCommand,omitempty"`
}

// Notice is an informational message, such as the result of an export.
type Notice struct {
	Message string `json:"message"`
}

func (UpdateData) Name() string { return MsgUpdateData }
func (Error) Name() string      { return MsgError }
func (Notice) Name() string     { return MsgNotice }

// Messages returns the zero value of every host message.
func Messages() []Message {
	return []Message{UpdateData{}, Error{}, Notice{}}
}

// ColumnNames returns the names of the update's columns in order.
func (u UpdateData) ColumnNames() []string {
	return core.ColumnNames(u.Data.Columns)
}
