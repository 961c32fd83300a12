package analyzer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"

	"github.com/siyuan-infoblox/css-imports/pkg/config"
	"github.com/siyuan-infoblox/css-imports/pkg/importparser"
)

// FileReport is the analysis outcome of one stylesheet.
type FileReport struct {
	File string `json:"file" yaml:"file"`

	importparser.Result `yaml:",inline"`

	original string
	output   string
}

// Changed reports whether processing removed anything from the stylesheet.
func (r *FileReport) Changed() bool {
	return r.original != r.output
}

// Output returns the stylesheet after processing.
func (r *FileReport) Output() string {
	return r.output
}

func renderReports(w io.Writer, format string, reports []*FileReport) error {
	if reports == nil {
		reports = []*FileReport{}
	}
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatTable, "":
		for _, r := range reports {
			renderTable(w, r)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidFormat, format)
	}
}

func renderTable(w io.Writer, r *FileReport) {
	requests := make(map[string]string, len(r.Imports))
	for _, imp := range r.Imports {
		requests[imp.ImportName] = imp.URL
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.SetTitle(r.File)
	tbl.AppendHeader(table.Row{"#", "Import", "Request", "Layer", "Supports", "Media"})

	for _, api := range r.API {
		request := api.URL
		if api.ImportName != "" {
			request = requests[api.ImportName]
		}
		tbl.AppendRow(table.Row{
			api.Index,
			api.ImportName,
			request,
			layerText(api.Layer),
			optional(api.Supports),
			optional(api.Media),
		})
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("Total: %s", english.Plural(len(r.Imports), "import", ""))})
	fmt.Fprintln(w, tbl.Render())

	for _, d := range r.Diagnostics {
		c := color.New(color.FgYellow)
		if d.Severity == importparser.SeverityError {
			c = color.New(color.FgRed)
		}
		c.Fprintf(w, "%s: %v\n", d.Severity, d.Err())
	}
	fmt.Fprintln(w)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func layerText(s *string) string {
	if s != nil && *s == "" {
		return "(anonymous)"
	}
	return optional(s)
}

// renderDiff prints the lines processing removed from or added to a
// stylesheet. Unchanged lines are skipped.
func renderDiff(w io.Writer, r *FileReport) {
	if !r.Changed() {
		return
	}

	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(r.original, r.output)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	fmt.Fprintf(w, "--- %s\n+++ %s\n", r.File, r.File)
	for _, d := range diffs {
		var prefix string
		var c *color.Color
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix, c = "-", color.New(color.FgRed)
		case diffmatchpatch.DiffInsert:
			prefix, c = "+", color.New(color.FgGreen)
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			c.Fprintf(w, "%s%s\n", prefix, line)
		}
	}
}
