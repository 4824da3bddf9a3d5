package core

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXSheet is the sheet name written on export.
const XLSXSheet = "Students"

// WriteXLSX writes records as a single-sheet workbook with a header row.
func WriteXLSX(w io.Writer, records []StudentRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), XLSXSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(XLSXSheet, "A1", &CSVHeader); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		fields := rec.Fields()
		if err := f.SetSheetRow(XLSXSheet, cell, &fields); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// ParseXLSX reads records from the first sheet of a workbook using the same
// rules as Parse: the first row is the header, columns are positional, and
// rows without a name are dropped. An unreadable or empty workbook fails with
// ErrMalformedInput.
func ParseXLSX(r io.Reader) ([]StudentRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrMalformedInput
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(rows) == 0 {
		return nil, ErrMalformedInput
	}

	records := make([]StudentRecord, 0, len(rows)-1)
	for index, row := range rows[1:] {
		rec := recordFromFields(index, row)
		if rec.Name == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// DecodeXLSX reads at most maxBytes from r and parses it as a workbook.
func DecodeXLSX(r io.Reader, maxBytes int64) ([]StudentRecord, error) {
	data, err := ReadAllLimited(r, maxBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrMalformedInput
	}
	return ParseXLSX(bytes.NewReader(data))
}
