package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVExporter exports flat rows to CSV format
type CSVExporter struct {
	writer        *csv.Writer
	options       CSVOptions
	headerWritten bool
}

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter     rune   `json:"delimiter"`      // Field delimiter (default: comma)
	UseCRLF       bool   `json:"use_crlf"`       // Use \r\n for line terminator
	IncludeHeader bool   `json:"include_header"` // Include column headers
	NullValue     string `json:"null_value"`     // String to use for null values
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:     ',',
		IncludeHeader: true,
	}
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(w io.Writer, options CSVOptions) *CSVExporter {
	writer := csv.NewWriter(w)
	writer.Comma = options.Delimiter
	writer.UseCRLF = options.UseCRLF

	return &CSVExporter{
		writer:  writer,
		options: options,
	}
}

// WriteHeader writes the CSV header row
func (e *CSVExporter) WriteHeader(columns []string) error {
	if !e.options.IncludeHeader || e.headerWritten {
		return nil
	}

	if err := e.writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	e.headerWritten = true
	return nil
}

// WriteRow writes a single row of data
func (e *CSVExporter) WriteRow(row []any) error {
	record := make([]string, len(row))
	for i, val := range row {
		record[i] = e.formatValue(val)
	}

	if err := e.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// WriteRows writes multiple rows of data
func (e *CSVExporter) WriteRows(rows [][]any) error {
	for _, row := range rows {
		if err := e.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer
func (e *CSVExporter) Flush() error {
	e.writer.Flush()
	return e.writer.Error()
}

func (e *CSVExporter) formatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return e.options.NullValue
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
