package core

// Record is one result row keyed by column name. Values are scalars or nil.
type Record map[string]any

// QueryResult is a fully materialized result set.
// Every record's keys are exactly Columns.
type QueryResult struct {
	Columns  []string `json:"columns"`
	Rows     []Record `json:"rows"`
	RowCount int64    `json:"rowCount"`
}

// Values returns the row's values in column order.
func (r Record) Values(columns []string) []any {
	vals := make([]any, len(columns))
	for i, c := range columns {
		vals[i] = r[c]
	}
	return vals
}
