package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/leapstack-labs/leapview/internal/protocol"
)

// wireField is one JSON field of a protocol message.
type wireField struct {
	Name     string
	Type     string
	Rule     string
	Optional bool
}

// wireFields lists the JSON fields of a command or message struct.
func wireFields(v any) []wireField {
	t := reflect.TypeOf(v)
	var fields []wireField
	for i := range t.NumField() {
		f := t.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields = append(fields, wireField{
			Name:     name,
			Type:     jsonType(f.Type),
			Rule:     f.Tag.Get("validate"),
			Optional: strings.Contains(opts, "omitempty"),
		})
	}
	return fields
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Slice:
		return "array of " + jsonType(t.Elem())
	case reflect.Map:
		return "object"
	case reflect.Struct:
		return t.Name()
	default:
		return t.Kind().String()
	}
}

// generateProtocolDocs writes the message protocol reference page.
func generateProtocolDocs(outDir string) error {
	log.Printf("Generating protocol docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Protocol", "Messages exchanged between a table view host and its client")
	w.GeneratedMarker()

	w.Header(1, "Protocol")
	w.Paragraph("Every message is a flat JSON object whose command field names it. Each direction is delivered in order. " +
		"The host answers every client command with exactly one updateData, error or notice. " +
		"A command that fails to decode or validate is logged and dropped without a reply.")

	w.Header(2, "Client Commands")
	for _, c := range protocol.Commands() {
		writeWireType(w, c.Name(), c)
	}

	w.Header(2, "Host Messages")
	for _, m := range protocol.Messages() {
		writeWireType(w, m.Name(), m)
	}

	log.Printf("  Generated protocol.md")
	return os.WriteFile(filepath.Join(outDir, "protocol.md"), w.Bytes(), 0600)
}

func writeWireType(w *MarkdownWriter, name string, v any) {
	w.Header(3, name)
	fields := wireFields(v)
	if len(fields) == 0 {
		w.CodeBlock("json", fmt.Sprintf(`{"command":%q}`, name))
		return
	}
	rows := make([][]string, len(fields))
	for i, f := range fields {
		always := "yes"
		if f.Optional {
			always = "no"
		}
		rule := ""
		if f.Rule != "" {
			rule = InlineCode(f.Rule)
		}
		rows[i] = []string{InlineCode(f.Name), f.Type, always, rule}
	}
	w.Table([]string{"Field", "Type", "Always Present", "Validation"}, rows)
}
