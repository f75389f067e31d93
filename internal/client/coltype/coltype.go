// Package coltype infers display types for the columns of a page of rows
// and compares and formats values according to those types.
package coltype

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
)

// Type is the inferred type of a column.
type Type string

// Column types.
const (
	String   Type = "string"
	Integer  Type = "integer"
	Float    Type = "float"
	Boolean  Type = "boolean"
	Date     Type = "date"
	DateTime Type = "datetime"
)

// IsNumeric reports whether t sorts numerically.
func (t Type) IsNumeric() bool { return t == Integer || t == Float }

// IsTemporal reports whether t sorts chronologically.
func (t Type) IsTemporal() bool { return t == Date || t == DateTime }

// MaxCellLength is the display width beyond which cells are truncated.
const MaxCellLength = 100

var (
	datePattern     = regexp.MustCompile(`^\d{4}[-/](0?[1-9]|1[012])[-/](0?[1-9]|[12][0-9]|3[01])$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}[-/](0?[1-9]|1[012])[-/](0?[1-9]|[12][0-9]|3[01])[\sT]([01]?[0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?(\.\d+)?(Z|[+-][01][0-9]:[0-5][0-9])?$`)
)

// Infer picks the narrowest type every non-null value satisfies, trying
// numeric, boolean and then temporal. A column with no non-null values is
// a string column.
func Infer(values []any) Type {
	nonNull := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			nonNull = append(nonNull, v)
		}
	}
	if len(nonNull) == 0 {
		return String
	}

	if all(nonNull, isNumber) {
		for _, v := range nonNull {
			if hasFraction(v) {
				return Float
			}
		}
		return Integer
	}
	if all(nonNull, isBoolean) {
		return Boolean
	}
	if all(nonNull, isDate) {
		for _, v := range nonNull {
			if hasTime(v) {
				return DateTime
			}
		}
		return Date
	}
	return String
}

// InferColumns infers a type per column over rows.
func InferColumns[R ~map[string]any](columns []string, rows []R) map[string]Type {
	types := make(map[string]Type, len(columns))
	values := make([]any, len(rows))
	for _, col := range columns {
		for i, row := range rows {
			values[i] = row[col]
		}
		types[col] = Infer(values)
	}
	return types
}

func all(values []any, pred func(any) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

func isNumber(v any) bool {
	_, ok := toFloat(v)
	return ok
}

func hasFraction(v any) bool {
	switch n := v.(type) {
	case float32:
		return float64(n) != math.Trunc(float64(n))
	case float64:
		return n != math.Trunc(n)
	case string:
		if strings.Contains(n, ".") {
			return true
		}
	case json.Number:
		if strings.Contains(n.String(), ".") {
			return true
		}
	}
	f, _ := toFloat(v)
	return f != math.Trunc(f)
}

func isBoolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return true
	case string:
		s := strings.ToLower(b)
		return s == "true" || s == "false"
	}
	f, ok := toFloat(v)
	return ok && (f == 0 || f == 1)
}

func isDate(v any) bool {
	if _, ok := v.(time.Time); ok {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	if datePattern.MatchString(s) || dateTimePattern.MatchString(s) {
		return true
	}
	_, err := dateparse.ParseAny(s)
	return err == nil
}

func hasTime(v any) bool {
	switch t := v.(type) {
	case time.Time:
		h, m, s := t.Clock()
		return h != 0 || m != 0 || s != 0 || t.Nanosecond() != 0
	case string:
		return dateTimePattern.MatchString(t) || strings.Contains(t, ":")
	}
	return false
}

// toFloat converts numbers and numeric strings. Booleans and blank strings
// are not numeric.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// toTime converts temporal values. ok is false for unparseable values.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := dateparse.ParseAny(t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

// Text is the plain string form of a value. NULL is the empty string.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// Compare orders a before b for an ascending sort of a column of type t.
// Nulls sort first. Numbers that fail to parse count as 0, as do
// unparseable dates. Everything else compares case-folded.
func Compare(a, b any, t Type) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch {
	case t.IsNumeric():
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return cmpFloat(fa, fb)
	case t.IsTemporal():
		return cmpInt(epochMillis(a), epochMillis(b))
	default:
		fold := cases.Fold()
		return strings.Compare(fold.String(Text(a)), fold.String(Text(b)))
	}
}

func epochMillis(v any) int64 {
	t, ok := toTime(v)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// FormatCell renders v for display in a column of type t. Unless full is
// set, text longer than MaxCellLength is truncated with "...".
func FormatCell(v any, t Type, full bool) string {
	if v == nil {
		return "NULL"
	}

	var s string
	switch t {
	case Boolean:
		s = formatBool(v)
	case Date:
		s = formatTime(v, "2006-01-02")
	case DateTime:
		s = formatTime(v, "2006-01-02 15:04:05")
	default:
		s = Text(v)
	}
	if m, ok := v.(map[string]any); ok && full {
		if b, err := json.MarshalIndent(m, "", "  "); err == nil {
			s = string(b)
		}
	}

	if !full && len([]rune(s)) > MaxCellLength {
		s = string([]rune(s)[:MaxCellLength]) + "..."
	}
	return s
}

func formatBool(v any) string {
	switch b := v.(type) {
	case bool:
		if b {
			return "✓"
		}
		return "✗"
	case string:
		switch strings.ToLower(b) {
		case "true":
			return "✓"
		case "false":
			return "✗"
		}
	}
	if f, ok := toFloat(v); ok {
		switch f {
		case 1:
			return "✓"
		case 0:
			return "✗"
		}
	}
	return Text(v)
}

func formatTime(v any, layout string) string {
	if t, ok := toTime(v); ok {
		return t.Format(layout)
	}
	return Text(v)
}
