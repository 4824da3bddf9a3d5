package core

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleStudents()); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	got, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseXLSX() error = %v", err)
	}

	want := sampleStudents()
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range got {
		if !reflect.DeepEqual(got[i].Fields(), want[i].Fields()) {
			t.Errorf("record %d = %v, want %v", i, got[i].Fields(), want[i].Fields())
		}
		if wantID := ImportedIDPrefix + string(rune('0'+i)); got[i].ID != wantID {
			t.Errorf("record %d ID = %q, want %q", i, got[i].ID, wantID)
		}
	}
}

func TestWriteXLSX_Header(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, nil); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != XLSXSheet {
		t.Fatalf("sheets = %v, want [%s]", sheets, XLSXSheet)
	}
	rows, err := f.GetRows(XLSXSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], CSVHeader) {
		t.Errorf("rows = %v, want header only", rows)
	}
}

func TestParseXLSX_DropsNamelessRows(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		CSVHeader,
		{"", "9th", "123", "S", "ST", "D"},
		{"Alice", "9th"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	f.Close()

	got, err := ParseXLSX(&buf)
	if err != nil {
		t.Fatalf("ParseXLSX() error = %v", err)
	}
	want := []StudentRecord{{ID: "imported-1", Name: "Alice", Class: "9th"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseXLSX() = %+v, want %+v", got, want)
	}
}

func TestParseXLSX_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not a workbook", input: "Student Name,Class\nAlice,9th"},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeXLSX(strings.NewReader(tt.input), 0)
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("DecodeXLSX() error = %v, want ErrMalformedInput", err)
			}
		})
	}
}
