// Package sheet is the spreadsheet boundary: it parses an uploaded xlsx
// workbook into an engine.Table and renders an annotated engine.Table back
// into xlsx bytes. The engine itself never touches the file format.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ciclogistica/retiros/internal/engine"
)

// ErrEmptyWorkbook is returned when the uploaded file has no usable header
// row.
var ErrEmptyWorkbook = errors.New("workbook has no header row")

// Read parses the first worksheet of an xlsx stream into a Table.
// The first row is the header; data rows shorter than the header are padded
// with empty cells so column positions stay stable.
func Read(r io.Reader) (engine.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return engine.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return engine.Table{}, ErrEmptyWorkbook
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return engine.Table{}, fmt.Errorf("read worksheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return engine.Table{}, ErrEmptyWorkbook
	}

	t := engine.Table{Headers: rows[0]}
	for _, row := range rows[1:] {
		if len(row) < len(t.Headers) {
			padded := make([]string, len(t.Headers))
			copy(padded, row)
			row = padded
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Write renders a table into a single-sheet xlsx workbook.
func Write(t engine.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)

	writeRow := func(rowNum int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return f.SetSheetRow(sheetName, cell, &values)
	}

	if err := writeRow(1, t.Headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	for i, row := range t.Rows {
		if err := writeRow(i+2, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
