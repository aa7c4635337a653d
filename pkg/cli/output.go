package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", NewConfigError("--output", fmt.Errorf("unknown format %q (must be text or json)", s))
	}
}

// Tabular is implemented by results that render as a table in text output.
type Tabular interface {
	Headers() []string
	Rows() [][]string
}

// Formatter writes command results.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter renders Tabular values as a table and anything else with %v.
type TextFormatter struct{}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// FormatTo writes data to w in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	tab, ok := data.(Tabular)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	rows := tab.Rows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(tab.Headers()...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	default:
		return &TextFormatter{}
	}
}
