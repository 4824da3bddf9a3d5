package core

// csv.go converts between student records and delimited text.
//
// The column layout is fixed: name, class, phone number, school name, state,
// district. The header line is written on export and skipped unread on
// import. Parsing is permissive: short rows are padded with empty strings,
// unreadable rows are skipped, and rows without a name are dropped.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Dialect selects how fields are delimited.
type Dialect int

const (
	// DialectRFC4180 quotes fields containing commas, quotes, or newlines.
	DialectRFC4180 Dialect = iota
	// DialectLegacy joins fields with bare commas and never quotes. Fields
	// containing a comma or newline do not survive a round trip.
	DialectLegacy
)

// CSVHeader holds the literal column titles written on export.
var CSVHeader = []string{"Student Name", "Class", "Phone Number", "School Name", "State", "District"}

// ImportedIDPrefix prefixes the batch-local IDs assigned while parsing.
const ImportedIDPrefix = "imported-"

// Serialize renders records as delimited text, header first, in input order.
func Serialize(records []StudentRecord, dialect Dialect) string {
	var b strings.Builder
	// strings.Builder never fails a write.
	_ = Encode(&b, records, dialect)
	return b.String()
}

// Encode writes records as delimited text to w.
func Encode(w io.Writer, records []StudentRecord, dialect Dialect) error {
	if dialect == DialectLegacy {
		return encodeLegacy(w, records)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec.Fields()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeLegacy(w io.Writer, records []StudentRecord) error {
	if _, err := io.WriteString(w, strings.Join(CSVHeader, ",")); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if _, err := io.WriteString(w, "\n"+strings.Join(rec.Fields(), ",")); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return nil
}

// Parse reads records from delimited text.
//
// The first line is the header and is skipped. Every following row gets the
// batch-local ID "imported-<index>", where index is the 0-based line the row
// starts on after the header. Blank lines and dropped empty-name rows still
// count, so index+2 is always the row's line in the file. Parse fails only
// with ErrMalformedInput when text is empty.
func Parse(text string, dialect Dialect) ([]StudentRecord, error) {
	if text == "" {
		return nil, ErrMalformedInput
	}

	body := ""
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		body = text[i+1:]
	}

	if dialect == DialectLegacy {
		return parseLegacy(body), nil
	}
	return parseRFC4180(body), nil
}

func parseLegacy(body string) []StudentRecord {
	records := make([]StudentRecord, 0)
	if body == "" {
		return records
	}
	for index, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		rec := recordFromFields(index, strings.Split(line, ","))
		if rec.Name == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func parseRFC4180(body string) []StudentRecord {
	records := make([]StudentRecord, 0)

	r := csv.NewReader(strings.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// Unreadable row: produces nothing.
				continue
			}
			break
		}
		// The reader skips blank lines, so the index comes from the
		// record's starting line rather than a running count.
		line, _ := r.FieldPos(0)
		rec := recordFromFields(line-1, fields)
		if rec.Name == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// recordFromFields maps positional values onto the six-column schema.
// Missing trailing values become empty strings and extras are ignored.
func recordFromFields(index int, values []string) StudentRecord {
	field := func(i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}
	return StudentRecord{
		ID:          fmt.Sprintf("%s%d", ImportedIDPrefix, index),
		Name:        field(0),
		Class:       field(1),
		PhoneNumber: field(2),
		SchoolName:  field(3),
		State:       field(4),
		District:    field(5),
	}
}

// Decode reads at most maxBytes from r and parses it. A UTF-8 byte order
// mark is stripped and invalid UTF-8 is replaced before parsing.
// maxBytes <= 0 disables the limit.
func Decode(r io.Reader, dialect Dialect, maxBytes int64) ([]StudentRecord, error) {
	data, err := ReadAllLimited(WrapForImport(r), maxBytes)
	if err != nil {
		return nil, err
	}
	return Parse(string(data), dialect)
}
