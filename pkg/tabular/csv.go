package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	// ErrNoColumns is returned for input without a header row.
	ErrNoColumns = errors.New("no columns to parse from file")
	// ErrInvalidEncoding is returned for input that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads comma-delimited UTF-8 text with a header row and infers
// a type for every column.
//
// Blank lines are skipped. Rows shorter than the header are padded with
// missing values; rows longer than the header are an error. A quote inside an
// unquoted field is kept literally, but a quoted field left open at the end
// of input is an error.
func ParseCSV(r io.Reader) (*Data, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return nil, ErrInvalidEncoding
	}

	if unterminatedQuote(raw) {
		return nil, errors.New("tokenize data: EOF inside quoted field")
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoColumns
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	width := len(header)
	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tokenize data: %w", err)
		}
		if len(record) > width {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("tokenize data: expected %d fields in line %d, saw %d", width, line, len(record))
		}
		for len(record) < width {
			record = append(record, "")
		}
		records = append(records, record)
	}

	return build(columnNames(header), records), nil
}

// unterminatedQuote reports whether raw ends inside a quoted field, using the
// same lazy quoting rules as the reader: a quote closes a quoted field only
// when followed by a delimiter, a line break or the end of input.
func unterminatedQuote(raw []byte) bool {
	inQuotes := false
	atFieldStart := true
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inQuotes {
			if c != '"' {
				continue
			}
			if i+1 < len(raw) && raw[i+1] == '"' {
				i++
				continue
			}
			if i+1 == len(raw) || raw[i+1] == ',' || raw[i+1] == '\n' || raw[i+1] == '\r' {
				inQuotes = false
			}
			continue
		}
		switch c {
		case ',', '\n':
			atFieldStart = true
		case '"':
			inQuotes = atFieldStart
			atFieldStart = false
		default:
			atFieldStart = false
		}
	}
	return inQuotes
}

// columnNames names blank header cells "Unnamed: <index>" and de-duplicates
// repeated names by appending ".1", ".2", ...
func columnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	counts := make(map[string]int)

	for i, h := range header {
		name := h
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[name] {
			base := name
			for {
				counts[base]++
				candidate := fmt.Sprintf("%s.%d", base, counts[base])
				if !seen[candidate] {
					name = candidate
					break
				}
			}
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func build(names []string, records [][]string) *Data {
	data := &Data{
		Columns: make([]Column, len(names)),
		Rows:    make([][]any, len(records)),
	}
	for i := range records {
		data.Rows[i] = make([]any, len(names))
	}

	for col, name := range names {
		values := make([]string, len(records))
		for row, record := range records {
			values[row] = record[col]
		}

		colType := inferType(values)
		data.Columns[col] = Column{Name: name, Type: colType}
		for row, v := range values {
			data.Rows[row][col] = convert(v, colType)
		}
	}
	return data
}
