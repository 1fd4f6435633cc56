package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"

	"github.com/v0xg/registrycheck/internal/result"
)

// SheetName is the worksheet holding the results
const SheetName = "Results"

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "xlsx" or "csv".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatXLSX, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown export format: %s (supported: xlsx, csv)", s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename returns a timestamped export name such as
// taxis_results_20260102_150405.xlsx.
func Filename(f Format, t time.Time) string {
	return fmt.Sprintf("taxis_results_%s.%s", t.Format("20060102_150405"), f)
}

// Write encodes records in the given format.
func Write(w io.Writer, f Format, records []result.Record) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	default:
		return fmt.Errorf("unknown export format: %s", f)
	}
}

// WriteXLSX writes a workbook with one header row and one row per record.
func WriteXLSX(w io.Writer, records []result.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cells := rec.Row()
		row := make([]interface{}, len(cells))
		for j, v := range cells {
			row[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(result.Columns))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, 22); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	return f.Write(w)
}

// WriteCSV writes a UTF-8 CSV with a header row.
func WriteCSV(w io.Writer, records []result.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes records to dir under a timestamped name and returns the path.
func Save(dir string, f Format, records []result.Record, now time.Time) (string, error) {
	path := filepath.Join(dir, Filename(f, now))
	return path, SaveAs(path, f, records)
}

// SaveAs writes records to path.
func SaveAs(path string, f Format, records []result.Record) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(out, f, records); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// RenderTable prints records as a terminal table.
func RenderTable(w io.Writer, records []result.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := table.Row{}
	for _, c := range result.Columns {
		header = append(header, c)
	}
	t.AppendHeader(header)

	for _, rec := range records {
		row := table.Row{}
		for _, v := range rec.Row() {
			row = append(row, v)
		}
		t.AppendRow(row)
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
