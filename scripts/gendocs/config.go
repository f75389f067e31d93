package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/leapstack-labs/leapview/internal/cli/config"
)

// configField is one documented configuration key.
type configField struct {
	Key  string
	Type string
}

// configFields walks the koanf tags of the CLI config. Map-valued sections
// are documented with a <name> placeholder segment.
func configFields() []configField {
	var fields []configField
	walkConfig(reflect.TypeOf(config.Config{}), "", &fields)
	return fields
}

func walkConfig(t reflect.Type, prefix string, out *[]configField) {
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		ft := f.Type
		switch {
		case ft.Kind() == reflect.Struct && ft.String() != "time.Duration":
			walkConfig(ft, key, out)
		case ft.Kind() == reflect.Map && ft.Elem().Kind() == reflect.Struct:
			walkConfig(ft.Elem(), key+".<name>", out)
		default:
			*out = append(*out, configField{Key: key, Type: typeName(ft)})
		}
	}
}

func typeName(t reflect.Type) string {
	switch {
	case t.String() == "time.Duration":
		return "duration"
	case t.Kind() == reflect.Map:
		return "map"
	default:
		return t.Kind().String()
	}
}

// envName returns the environment variable that sets key.
func envName(key string) string {
	return "LEAPVIEW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// generateConfigDocs writes the configuration reference page.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "Configuration file reference for LeapView")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("LeapView reads leapview.yaml from the working directory or the nearest parent directory. Values are overridden by LEAPVIEW_ environment variables and then by command-line flags.")

	w.Header(2, "Keys")
	var settings, connections [][]string
	for _, f := range configFields() {
		if strings.HasPrefix(f.Key, "connections.") {
			connections = append(connections, []string{InlineCode(f.Key), f.Type})
			continue
		}
		settings = append(settings, []string{InlineCode(f.Key), f.Type, InlineCode(envName(f.Key))})
	}
	w.Table([]string{"Key", "Type", "Environment"}, settings)

	w.Header(2, "Connections")
	w.Paragraph("Connections are keyed by name and can only be set in the config file.")
	w.Table([]string{"Key", "Type"}, connections)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `page_size: 50
query_timeout: 30s
log:
  level: info
ui:
  port: 8765
  watch: true
connections:
  demo:
    type: sqlite
    path: leapview-demo.db`)

	log.Printf("  Generated configuration.md")
	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}
