// Package csvio reads delimited text sources as streams of field-named
// records. The first row is the header; each subsequent row becomes a
// Record mapping cleaned column names to raw cell text. Interpretation of
// the values (synonym resolution, type coercion) is left to the caller.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one data row keyed by cleaned header name.
type Record struct {
	// Line is the 1-based data row number (header excluded).
	Line   int
	fields map[string]string
}

// Get returns the first non-empty value among the candidate column names,
// tried in order. Values are whitespace-trimmed; a missing column reads as
// empty.
func (r Record) Get(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(r.fields[CleanHeader(name)]); v != "" {
			return v
		}
	}
	return ""
}

// Empty reports whether every cell in the record is blank.
func (r Record) Empty() bool {
	for _, v := range r.fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Reader streams records from a CSV file. Each Open call produces an
// independent reader positioned at the first data row.
type Reader struct {
	f      *os.File
	cr     *csv.Reader
	header []string
	line   int
}

// Open opens the file and consumes the header row. Failure to open or to
// read a header means the source is unusable as a whole.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1 // rows may be ragged; missing cells read as empty

	header, err := cr.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = CleanHeader(h)
	}

	return &Reader{f: f, cr: cr, header: header}, nil
}

// Next returns the next record. It returns io.EOF at end of input; any
// other error means the source itself is undecodable past this point.
func (r *Reader) Next() (Record, error) {
	row, err := r.cr.Read()
	if err == io.EOF {
		return Record{}, io.EOF
	}
	if err != nil {
		return Record{}, fmt.Errorf("read row: %w", err)
	}

	r.line++
	fields := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if name == "" {
			continue
		}
		if i < len(row) {
			fields[name] = row[i]
		}
	}
	return Record{Line: r.line, fields: fields}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// CleanHeader normalizes a header cell: strips a UTF-8 BOM, surrounding
// whitespace, and Excel formula artifacts, then lowercases.
func CleanHeader(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "=")
	s = strings.Trim(s, `"`)
	return strings.ToLower(strings.TrimSpace(s))
}
