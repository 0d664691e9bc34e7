// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/towerofpower256/DavesSNBulkDataExportTool/internal/servicenow"
)

// csvSink writes rows to a delimited text file. The column order is fixed
// by WriteHeader and every subsequent row is emitted in that order.
type csvSink struct {
	file    *os.File
	writer  *csv.Writer
	columns []string
}

// newCSVSink creates or truncates the output file.
func newCSVSink(path string, comma rune) (*csvSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open the output file for writing: %w", err)
	}

	writer := csv.NewWriter(file)
	writer.Comma = comma

	return &csvSink{file: file, writer: writer}, nil
}

// WriteHeader writes the header line and pins the column order for all
// following rows.
func (s *csvSink) WriteHeader(columns []string) error {
	s.columns = columns
	if err := s.writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	return nil
}

// WriteRow writes one record in the pinned column order. Fields the record
// does not carry are written empty.
func (s *csvSink) WriteRow(row servicenow.Row) error {
	record := make([]string, len(s.columns))
	for i, col := range s.columns {
		record[i] = formatValue(row[col])
	}
	if err := s.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	return nil
}

// Close flushes and closes the output file. Safe to call once per sink on
// both the success and the failure path.
func (s *csvSink) Close() error {
	if s.file == nil {
		return nil
	}

	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	s.file = nil

	if flushErr != nil {
		return fmt.Errorf("failed to flush CSV: %w", flushErr)
	}
	return closeErr
}

// formatValue coerces a Table API value to its text form.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
