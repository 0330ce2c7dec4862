// Package report renders extracted facts and check results as text tables,
// for the terminal and for the scan log file.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/robert-at-pretension-io/svpar/internal/extractor"
	"github.com/robert-at-pretension-io/svpar/internal/policy"
)

// Options controls rendering.
type Options struct {
	// Color enables bold headers and severity colors. Leave off for files.
	Color bool
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	severityColors = map[string]lipgloss.Color{
		"error":   lipgloss.Color("9"),
		"warning": lipgloss.Color("11"),
		"info":    lipgloss.Color("12"),
	}
)

func newTable(opts Options, headers ...string) *table.Table {
	head := cellStyle
	if opts.Color {
		head = headerStyle
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return head
			}
			return cellStyle
		})
}

// Render writes, per file, the header parameters, body parameters, ports,
// inherited bindings and diagnostics, each preceded by its count line.
func Render(w io.Writer, files []extractor.FileFacts, opts Options) error {
	var b strings.Builder
	b.WriteString("\nsvpar log:\n")
	for _, f := range files {
		renderFile(&b, f, opts)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderFile(b *strings.Builder, f extractor.FileFacts, opts Options) {
	fmt.Fprintf(b, "\nfile: %s\n", f.File)
	if len(f.Modules) > 0 {
		names := make([]string, len(f.Modules))
		for i, m := range f.Modules {
			names[i] = m.Name
		}
		fmt.Fprintf(b, "modules: %s\n", strings.Join(names, ", "))
	}

	fmt.Fprintf(b, "%d header parameter(s) found:\n", len(f.HeaderParams))
	b.WriteString(parameterTable(f.HeaderParams, opts) + "\n")

	fmt.Fprintf(b, "%d body parameter(s) found:\n", len(f.BodyParams))
	b.WriteString(parameterTable(f.BodyParams, opts) + "\n")

	fmt.Fprintf(b, "%d port(s) found:\n", len(f.Ports))
	b.WriteString(portTable(f.Ports, opts) + "\n")

	fmt.Fprintf(b, "%d inherited parameter(s) found:\n", len(f.Bindings))
	b.WriteString(bindingTable(f.Bindings, opts) + "\n")

	if len(f.Diagnostics) > 0 {
		fmt.Fprintf(b, "%d diagnostic(s):\n", len(f.Diagnostics))
		t := newTable(opts, "line", "kind", "message")
		for _, d := range f.Diagnostics {
			t.Row(strconv.Itoa(d.Line), d.Kind, d.Message)
		}
		b.WriteString(t.String() + "\n")
	}
}

func parameterTable(decls []extractor.Declaration, opts Options) string {
	t := newTable(opts, "line", "name", "type", "dimension", "default values")
	for _, d := range decls {
		name := d.Name
		if d.Local {
			name += " (local)"
		}
		def := ""
		if d.Default != nil {
			def = d.Default.String()
		}
		t.Row(strconv.Itoa(d.Line), name, typeText(d), d.Dimension.String(), def)
	}
	return t.String()
}

func portTable(decls []extractor.Declaration, opts Options) string {
	t := newTable(opts, "line", "name", "direction", "type", "width", "array", "role")
	for _, d := range decls {
		var role []string
		if d.Clock {
			role = append(role, "clock")
		}
		if d.Reset {
			role = append(role, "reset")
		}
		t.Row(strconv.Itoa(d.Line), d.Name, string(d.Direction), typeText(d),
			d.Width.String(), d.Dimension.String(), strings.Join(role, ","))
	}
	return t.String()
}

func bindingTable(bindings []extractor.Binding, opts Options) string {
	t := newTable(opts, "line", "target", "name", "dimension", "reference", "index")
	for _, bd := range bindings {
		t.Row(strconv.Itoa(bd.Line), bd.Target, bd.FormalName, bd.FormalDimension.String(),
			bd.ActualName, bd.ActualIndex.String())
	}
	return t.String()
}

func typeText(d extractor.Declaration) string {
	parts := make([]string, 0, 2)
	if d.DataType != "" {
		parts = append(parts, d.DataType)
	}
	if d.Signedness != "" {
		parts = append(parts, string(d.Signedness))
	}
	return strings.Join(parts, " ")
}

// RenderViolations writes the violations as a table followed by the summary
// line. No violations prints only the summary.
func RenderViolations(w io.Writer, result *policy.Result, opts Options) error {
	var b strings.Builder
	if result != nil && len(result.Violations) > 0 {
		t := newTable(opts, "severity", "rule", "location", "message")
		if opts.Color {
			t.StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 0 && row >= 0 && row < len(result.Violations) {
					if c, ok := severityColors[result.Violations[row].Severity]; ok {
						return cellStyle.Foreground(c)
					}
				}
				return cellStyle
			})
		}
		for _, v := range result.Violations {
			t.Row(v.Severity, v.Rule, v.File+":"+strconv.Itoa(v.Line), v.Message)
		}
		b.WriteString(t.String() + "\n")
	}

	var s policy.Summary
	if result != nil {
		s = result.Summary
	}
	fmt.Fprintf(&b, "%d violation(s): %d error(s), %d warning(s), %d info\n", s.Total, s.Errors, s.Warnings, s.Info)
	_, err := io.WriteString(w, b.String())
	return err
}
