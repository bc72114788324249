// Package cli holds the pieces shared by the platconf commands: output
// rendering and opening the platform configuration the flags point at.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format selects how command results are printed.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat indicates an unsupported --output value.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the accepted --output values.
func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatYAML), string(FormatTOML)}
}

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q (valid: %s)", s, strings.Join(Formats(), ", "))
	}
}

// Render writes v in format f. Text output is produced by text. TOML
// documents must be tables, so v is written under key.
func Render(w io.Writer, f Format, key string, v any, text func(io.Writer) error) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "encoding output")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encoding output")
		}
		return errors.Wrap(enc.Close(), "encoding output")
	case FormatTOML:
		enc := toml.NewEncoder(w)
		return errors.Wrap(enc.Encode(map[string]any{key: v}), "encoding output")
	default:
		return text(w)
	}
}

// Table writes aligned columns with a bold header row.
type Table struct {
	tw *tabwriter.Writer
}

var headerColor = color.New(color.Bold)

// NewTable starts a table on w with the given column headers.
func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = headerColor.Sprint(h)
	}
	fmt.Fprintln(t.tw, strings.Join(cells, "\t"))
	return t
}

// Row appends a row. Cells are formatted with %v.
func (t *Table) Row(cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(t.tw, strings.Join(parts, "\t"))
}

// Flush writes the table.
func (t *Table) Flush() error {
	return errors.Wrap(t.tw.Flush(), "writing table")
}
