// Package output provides result formatting for the lambundaler CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Format represents the output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (valid: table, json, yaml)", s)
	}
}

// Formatter formats build results in various formats
type Formatter struct {
	Format Format
	Quiet  bool
	Writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(format Format, quiet bool) *Formatter {
	return &Formatter{
		Format: format,
		Quiet:  quiet,
		Writer: os.Stdout,
	}
}

// Print outputs data in the configured format
func (f *Formatter) Print(data any) error {
	if f.Quiet {
		return nil
	}

	switch f.Format {
	case FormatYAML:
		return f.printYAML(data)
	default:
		return f.printJSON(data)
	}
}

func (f *Formatter) printJSON(data any) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *Formatter) printYAML(data any) error {
	encoder := yaml.NewEncoder(f.Writer)
	encoder.SetIndent(2)
	defer func() { _ = encoder.Close() }()
	return encoder.Encode(data)
}

// KeyValues is an ordered set of summary fields for table output.
type KeyValues struct {
	Keys   []string
	Values []string
}

// Add appends one summary field.
func (kv *KeyValues) Add(key, value string) {
	kv.Keys = append(kv.Keys, key)
	kv.Values = append(kv.Values, value)
}

// PrintSummary prints the build summary as a two-column table, or as a
// map in json/yaml mode.
func (f *Formatter) PrintSummary(kv KeyValues) error {
	if f.Quiet {
		return nil
	}

	if f.Format != FormatTable {
		m := make(map[string]string, len(kv.Keys))
		for i, key := range kv.Keys {
			m[key] = kv.Values[i]
		}
		return f.Print(m)
	}

	table := tablewriter.NewWriter(f.Writer)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	for i, key := range kv.Keys {
		table.Append([]string{key, kv.Values[i]})
	}
	table.Render()
	return nil
}

// PrintError prints an error message to stderr
func (f *Formatter) PrintError(message string) {
	fmt.Fprintln(os.Stderr, "Error:", message)
}
