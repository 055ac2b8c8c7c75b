package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is one fully read input file with a canonical header.
type Table struct {
	Kind   FileKind
	Name   string // base file name, used in messages
	Header []string
	Index  HeaderIndex
	Rows   []Row
}

// Has reports whether the file carries the column.
func (t *Table) Has(col string) bool {
	_, ok := t.Index[col]
	return ok
}

// Row is one data line of a Table.
type Row struct {
	Line   int // 1-based line in the file, header is line 1
	values []string
	index  HeaderIndex
}

// NewRow builds a row from column values. Used by tests and callers that do
// not read from CSV.
func NewRow(line int, values map[string]string) Row {
	r := Row{Line: line, index: make(HeaderIndex, len(values))}
	for col, v := range values {
		r.index[col] = len(r.values)
		r.values = append(r.values, v)
	}
	return r
}

// Lookup returns the cleaned cell for col and whether the file has that column.
func (r Row) Lookup(col string) (string, bool) {
	pos, ok := r.index[col]
	if !ok {
		return "", false
	}
	if pos >= len(r.values) {
		return "", true
	}
	return CleanCell(r.values[pos]), true
}

// Get returns the cleaned cell for col, or "" when absent.
func (r Row) Get(col string) string {
	v, _ := r.Lookup(col)
	return v
}

// Has reports whether the row's file carries the column.
func (r Row) Has(col string) bool {
	_, ok := r.index[col]
	return ok
}

// ReadFile reads and parses a whole extract from disk.
func ReadFile(path string, spec FileSpec) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", spec.Kind, err)
	}
	return ParseTable(data, filepath.Base(path), spec)
}

// ReadTable reads an extract from r.
func ReadTable(r io.Reader, name string, spec FileSpec) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", spec.Kind, err)
	}
	return ParseTable(data, name, spec)
}

// ParseTable parses CSV bytes into a Table. The header is canonicalized
// but not validated; see ValidateColumns.
func ParseTable(data []byte, name string, spec FileSpec) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s file %q: empty file", spec.Kind, name)
	}
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s file %q: invalid csv header: %w", spec.Kind, name, err)
	}

	t := &Table{
		Kind:   spec.Kind,
		Name:   name,
		Header: CanonicalHeader(header, spec.Aliases),
	}
	t.Index = MakeHeaderIndex(t.Header)

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s file %q: invalid csv: %w", spec.Kind, name, err)
		}
		if isEmptyRow(rec) {
			continue
		}
		line, _ := r.FieldPos(0)
		t.Rows = append(t.Rows, Row{Line: line, values: rec, index: t.Index})
	}

	return t, nil
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
