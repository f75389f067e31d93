package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapview/internal/cli"
	"github.com/leapstack-labs/leapview/internal/repl"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// documented reports whether cmd gets a page or a section of its own.
func documented(cmd *cobra.Command) bool {
	return !cmd.Hidden && cmd.IsAvailableCommand() && cmd.Name() != "help"
}

// generateCLIDocs writes index.md plus one page per top-level command.
// Nested commands are sections of their parent's page.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := map[string][]byte{"index.md": cliIndex(root)}
	for _, cmd := range root.Commands() {
		if documented(cmd) {
			pages[cmd.Name()+".md"] = commandPage(cmd)
		}
	}

	for name, body := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), body, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

func cliIndex(root *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for LeapView")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/leapview/cmd/leapview@latest\nleapview <command> [options]")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range root.Commands() {
		if !documented(cmd) {
			continue
		}
		rows = append(rows, []string{
			fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Table(flagHeaders, flagRows(root.PersistentFlags()))

	w.Header(2, "Environment Variables")
	w.Paragraph("Settings below can also come from the environment. Flags win over the environment, which wins over the config file.")
	var env [][]string
	for _, f := range configFields() {
		if !strings.HasPrefix(f.Key, "connections.") {
			env = append(env, []string{InlineCode(envName(f.Key)), InlineCode(f.Key)})
		}
	}
	w.Table([]string{"Variable", "Key"}, env)

	w.Paragraph("Every command exits 0 on success and 1 on error, with details on stderr.")
	return w.Bytes()
}

// commandPage documents cmd and, as sections, every command below it.
func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()
	writeCommand(w, cmd, 1)

	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		w.Table(flagHeaders, flagRows(cmd.InheritedFlags()))
	}
	if cmd.Name() == "browse" {
		writeVerbs(w)
	}
	return w.Bytes()
}

func writeCommand(w *MarkdownWriter, cmd *cobra.Command, level int) {
	w.Header(level, strings.TrimPrefix(cmd.CommandPath(), "leapview "))
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}
	if cmd.Runnable() {
		w.CodeBlock("bash", cmd.UseLine())
	}
	if len(cmd.Aliases) > 0 {
		aliases := make([]string, len(cmd.Aliases))
		for i, a := range cmd.Aliases {
			aliases[i] = InlineCode(a)
		}
		w.Paragraph("Aliases: " + strings.Join(aliases, ", "))
	}
	if cmd.HasLocalFlags() {
		w.Table(flagHeaders, flagRows(cmd.LocalNonPersistentFlags()))
	}
	if cmd.Example != "" {
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}
	for _, sub := range cmd.Commands() {
		if documented(sub) {
			writeCommand(w, sub, level+1)
		}
	}
}

// writeVerbs documents the interactive commands of the browse REPL.
func writeVerbs(w *MarkdownWriter) {
	w.Header(2, "Interactive Commands")
	w.Paragraph("Inside a browse session each line is one of these commands. Sorting, filtering and paging round-trip to the host; find, select and full act on the page in hand.")
	rows := make([][]string, len(repl.Verbs))
	for i, v := range repl.Verbs {
		rows[i] = []string{InlineCode(v.Usage), v.Group, cleanDescription(v.Summary)}
	}
	w.Table([]string{"Command", "Group", "Description"}, rows)
}

var flagHeaders = []string{"Option", "Default", "Description"}

func flagRows(flags *pflag.FlagSet) [][]string {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		option := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			option = InlineCode("-"+f.Shorthand) + ", " + option
		}
		def := f.DefValue
		if def != "" && f.Value.Type() != "bool" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{option, def, cleanDescription(f.Usage)})
	})
	return rows
}

// cleanExample strips the indentation shared by every non-blank line.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
