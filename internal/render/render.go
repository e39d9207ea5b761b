// Package render turns controller snapshots into tables, JSON, YAML and
// XLSX workbooks.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/obligation-finder/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatXLSX  Format = "xlsx"
)

// Formats lists every supported output format.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatXLSX}

// ParseFormat converts a flag value into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", eris.Errorf("unknown output format %q (valid: table, json, yaml, xlsx)", s)
}

// Binary reports whether the format should not be written to a terminal.
func (f Format) Binary() bool {
	return f == FormatXLSX
}

// Write renders snaps to w in the given format.
func Write(w io.Writer, f Format, snaps ...model.Snapshot) error {
	switch f {
	case FormatTable:
		return Table(w, snaps...)
	case FormatJSON:
		return JSON(w, snaps...)
	case FormatYAML:
		return YAML(w, snaps...)
	case FormatXLSX:
		return XLSX(w, snaps...)
	default:
		return eris.Errorf("render: unsupported format %q", f)
	}
}

var printer = message.NewPrinter(language.English)

// Money formats v as US dollars with thousands separators, e.g. "$1,250.50".
func Money(v float64) string {
	if v < 0 {
		return "-" + printer.Sprintf("$%.2f", -v)
	}
	return printer.Sprintf("$%.2f", v)
}

// Count formats n with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

// Table writes a human-readable summary followed by one row per record.
func Table(out io.Writer, snaps ...model.Snapshot) error {
	for i, s := range snaps {
		if i > 0 {
			if _, err := fmt.Fprintln(out); err != nil {
				return eris.Wrap(err, "render: table")
			}
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "FISCAL YEAR\t%s\n", s.SelectedYear)
		_, _ = fmt.Fprintf(w, "STATUS\t%s\n", s.Status)
		if s.Error != "" {
			_, _ = fmt.Fprintf(w, "ERROR\t%s\n", truncate(s.Error, 80))
		}
		_, _ = fmt.Fprintf(w, "TOTAL OBLIGATIONS\t%s\n", Money(s.TotalValue))
		_, _ = fmt.Fprintf(w, "RECORDS FOUND\t%s\n", Count(s.RecordCount))

		if len(s.Dataset) > 0 {
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintln(w, "ACCOUNT\tOBLIGATED\tPROJECTED")
			_, _ = fmt.Fprintln(w, "-------\t---------\t---------")
			for _, r := range s.Dataset {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", truncate(r.Name, 60), Money(r.Value), Money(r.Alternative))
			}
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "render: table")
		}
	}
	return nil
}

// JSON writes a single snapshot as an object and several as an array.
func JSON(w io.Writer, snaps ...model.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	var v any = snaps
	if len(snaps) == 1 {
		v = snaps[0]
	}
	return eris.Wrap(enc.Encode(v), "render: json")
}

// YAML writes a single snapshot as a document and several as a sequence.
func YAML(w io.Writer, snaps ...model.Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	var v any = snaps
	if len(snaps) == 1 {
		v = snaps[0]
	}
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "render: yaml")
	}
	return eris.Wrap(enc.Close(), "render: yaml")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
