package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates a --output value; empty means table
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatTable:
		return OutputFormatTable, nil
	case OutputFormatJSON, OutputFormatYAML:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (valid: table, json, yaml)", s)
	}
}

// DataWriter handles formatted output of structured data
type DataWriter struct {
	output io.Writer
	format OutputFormat
}

// NewDataWriter creates a new DataWriter
func NewDataWriter(output io.Writer, format OutputFormat) *DataWriter {
	if format == "" {
		format = OutputFormatTable
	}
	return &DataWriter{
		output: output,
		format: format,
	}
}

// WriteKeyValue writes key-value pairs; table output keeps the order of keys
func (dw *DataWriter) WriteKeyValue(title string, keys []string, data map[string]interface{}) error {
	switch dw.format {
	case OutputFormatJSON:
		return dw.writeJSON(data)
	case OutputFormatYAML:
		return dw.writeYAML(data)
	case OutputFormatTable:
		return dw.writeKeyValueTable(title, keys, data)
	default:
		return fmt.Errorf("unsupported output format: %s", dw.format)
	}
}

// WriteTable writes tabular data with headers
func (dw *DataWriter) WriteTable(headers []string, rows [][]string) error {
	switch dw.format {
	case OutputFormatJSON, OutputFormatYAML:
		// Structured formats get an array of objects
		objects := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			obj := make(map[string]string)
			for i, header := range headers {
				if i < len(row) {
					obj[header] = row[i]
				}
			}
			objects = append(objects, obj)
		}
		if dw.format == OutputFormatYAML {
			return dw.writeYAML(objects)
		}
		return dw.writeJSON(objects)
	case OutputFormatTable:
		return dw.writeTabularData(headers, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", dw.format)
	}
}

func (dw *DataWriter) writeJSON(data interface{}) error {
	encoder := json.NewEncoder(dw.output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (dw *DataWriter) writeYAML(data interface{}) error {
	encoder := yaml.NewEncoder(dw.output)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

func (dw *DataWriter) writeKeyValueTable(title string, keys []string, data map[string]interface{}) error {
	if title != "" {
		_, _ = fmt.Fprintln(dw.output, title)
	}

	w := tabwriter.NewWriter(dw.output, 0, 0, 2, ' ', 0)
	for _, key := range keys {
		if value, exists := data[key]; exists && value != nil && value != "" {
			_, _ = fmt.Fprintf(w, "  %s:\t%v\t\n", key, value)
		}
	}

	_ = w.Flush()
	return nil
}

func (dw *DataWriter) writeTabularData(headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(dw.output, 0, 0, 2, ' ', 0)

	for i, header := range headers {
		_, _ = fmt.Fprint(w, header)
		if i < len(headers)-1 {
			_, _ = fmt.Fprint(w, "\t")
		}
	}
	_, _ = fmt.Fprintln(w, "\t") // Trailing tab for proper termination

	for _, row := range rows {
		for i, cell := range row {
			_, _ = fmt.Fprint(w, cell)
			if i < len(row)-1 {
				_, _ = fmt.Fprint(w, "\t")
			}
		}
		_, _ = fmt.Fprintln(w, "\t")
	}

	return w.Flush()
}

// TableBuilder helps build table data incrementally
type TableBuilder struct {
	headers []string
	rows    [][]string
}

// NewTableBuilder creates a new TableBuilder
func NewTableBuilder(headers ...string) *TableBuilder {
	return &TableBuilder{
		headers: headers,
		rows:    [][]string{},
	}
}

// AddRow adds a row to the table
func (tb *TableBuilder) AddRow(values ...string) *TableBuilder {
	tb.rows = append(tb.rows, values)
	return tb
}

// Write outputs the table using the DataWriter
func (tb *TableBuilder) Write(dw *DataWriter) error {
	return dw.WriteTable(tb.headers, tb.rows)
}

// KeyValueBuilder helps build key-value data, remembering insertion order
type KeyValueBuilder struct {
	title string
	keys  []string
	data  map[string]interface{}
}

// NewKeyValueBuilder creates a new KeyValueBuilder
func NewKeyValueBuilder(title string) *KeyValueBuilder {
	return &KeyValueBuilder{
		title: title,
		data:  make(map[string]interface{}),
	}
}

// Add adds a key-value pair
func (kvb *KeyValueBuilder) Add(key string, value interface{}) *KeyValueBuilder {
	if _, exists := kvb.data[key]; !exists {
		kvb.keys = append(kvb.keys, key)
	}
	kvb.data[key] = value
	return kvb
}

// AddIf conditionally adds a key-value pair
func (kvb *KeyValueBuilder) AddIf(condition bool, key string, value interface{}) *KeyValueBuilder {
	if condition {
		kvb.Add(key, value)
	}
	return kvb
}

// Write outputs the key-value data using the DataWriter
func (kvb *KeyValueBuilder) Write(dw *DataWriter) error {
	return dw.WriteKeyValue(kvb.title, kvb.keys, kvb.data)
}
