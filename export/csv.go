package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"bitbucket.org/mmdatafocus/station_backend/utils"
)

// TabularExporter streams flattened documents into CSV with a fixed column
// list. Every row carries exactly the configured columns in order; a
// document missing a column contributes an empty cell, and fields outside
// the column list are dropped. That keeps the output stable across schema
// drift in the source collection.
type TabularExporter struct {
	columns       []string
	writer        *csv.Writer
	headerWritten bool
}

// NewTabularExporter drops repeated column names, keeping the first
// occurrence, so a sloppy column list cannot produce a double header.
func NewTabularExporter(w io.Writer, columns []string) *TabularExporter {
	return &TabularExporter{
		columns: utils.UniqueSlice(columns),
		writer:  csv.NewWriter(w),
	}
}

// WriteDocument flattens one document and appends its row. The header is
// emitted before the first row.
func (e *TabularExporter) WriteDocument(doc Value) error {
	if !e.headerWritten {
		if err := e.writer.Write(e.columns); err != nil {
			return err
		}
		e.headerWritten = true
	}

	row := Flatten(doc)
	record := make([]string, len(e.columns))
	for i, column := range e.columns {
		record[i] = cellString(row[column])
	}
	return e.writer.Write(record)
}

// Close flushes buffered rows; the header still goes out for an empty
// collection so the sink always holds a valid file.
func (e *TabularExporter) Close() error {
	if !e.headerWritten {
		if err := e.writer.Write(e.columns); err != nil {
			return err
		}
		e.headerWritten = true
	}
	e.writer.Flush()
	return e.writer.Error()
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
