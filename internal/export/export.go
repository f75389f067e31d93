// Package export encodes query results into files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/leapstack-labs/leapview/pkg/query"
	"gopkg.in/yaml.v3"
)

// Encoder writes a result set in one output format.
type Encoder interface {
	// Extension is the file extension without the dot.
	Extension() string
	// Encode writes res to w. table names the INSERT target where relevant.
	Encode(w io.Writer, table string, res *core.QueryResult) error
}

// Formats lists the supported export format names.
var Formats = []string{"csv", "json", "sql", "yaml"}

// For returns the encoder for format, matched case-insensitively.
func For(format string) (Encoder, error) {
	switch strings.ToLower(format) {
	case "csv":
		return CSV{}, nil
	case "json":
		return JSON{}, nil
	case "sql":
		return SQL{}, nil
	case "yaml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// DefaultFileName is the file name used when the caller does not pick one.
func DefaultFileName(table string, enc Encoder) string {
	return fmt.Sprintf("%s_export.%s", table, enc.Extension())
}

// CSV writes a header row followed by one record per row. NULL becomes an
// empty field.
type CSV struct{}

func (CSV) Extension() string { return "csv" }

func (CSV) Encode(w io.Writer, _ string, res *core.QueryResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, col := range res.Columns {
			record[i] = text(row[col])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSON writes an indented array of row objects with keys in column order.
type JSON struct{}

func (JSON) Extension() string { return "json" }

func (JSON) Encode(w io.Writer, _ string, res *core.QueryResult) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, row := range res.Rows {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, col := range res.Columns {
			if j > 0 {
				buf.WriteString(",")
			}
			key, _ := json.Marshal(col)
			val, err := json.Marshal(row[col])
			if err != nil {
				return fmt.Errorf("failed to encode column %s: %w", col, err)
			}
			fmt.Fprintf(&buf, "\n    %s: %s", key, val)
		}
		if len(res.Columns) > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteString("}")
	}
	if len(res.Rows) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// SQL writes one INSERT statement per row.
type SQL struct{}

func (SQL) Extension() string { return "sql" }

func (SQL) Encode(w io.Writer, table string, res *core.QueryResult) error {
	cols := strings.Join(res.Columns, ", ")
	for i, row := range res.Rows {
		values := make([]string, len(res.Columns))
		for j, col := range res.Columns {
			values[j] = literal(row[col])
		}
		sep := "\n"
		if i == len(res.Rows)-1 {
			sep = ""
		}
		if _, err := fmt.Fprintf(w, "INSERT INTO %s (%s) VALUES (%s);%s", table, cols, strings.Join(values, ", "), sep); err != nil {
			return err
		}
	}
	return nil
}

// YAML writes a sequence of row mappings with keys in column order.
type YAML struct{}

func (YAML) Extension() string { return "yaml" }

func (YAML) Encode(w io.Writer, _ string, res *core.QueryResult) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range res.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, col := range res.Columns {
			val, err := yamlValue(row[col])
			if err != nil {
				return fmt.Errorf("failed to encode column %s: %w", col, err)
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: col}, val)
		}
		seq.Content = append(seq.Content, m)
	}
	if len(seq.Content) == 0 {
		seq.Style = yaml.FlowStyle
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}); err != nil {
		return fmt.Errorf("failed to write yaml: %w", err)
	}
	return enc.Close()
}

func yamlValue(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case []byte:
		v = string(t)
	case time.Time:
		v = t.Format(time.RFC3339Nano)
	}
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return &n, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string, []byte:
		return query.Quote(text(t))
	case time.Time:
		return query.Quote(t.UTC().Format(time.RFC3339Nano))
	default:
		return fmt.Sprintf("%v", t)
	}
}
