// Package table provides an in-memory text table and its CSV encoding.
//
// Every cell is a string. Reading CSV never infers numeric or date types, and
// building a table from arbitrary values formats each value with fmt.Sprint.
//
// CSV readers turn a CR LF inside a quoted field into LF, so New, Append and
// Format store CR LF as LF. Cells built through them survive a CSV write/read
// round trip unchanged. Rows assigned directly keep any CR LF, which comes back
// from ReadCSV as LF.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

var (
	// ErrNoHeader is returned when CSV input has no header row.
	ErrNoHeader = errors.New("table: csv input has no header row")

	// ErrRowWidth is returned when a row does not have one cell per column.
	ErrRowWidth = errors.New("table: row width does not match column count")
)

// utf8BOM is stripped from the start of CSV input.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is an ordered set of named columns and rows of string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates a table, checking that every row has one cell per column.
func New(columns []string, rows ...[]string) (*Table, error) {
	t := &Table{
		Columns: slices.Clone(columns),
		Rows:    make([][]string, 0, len(rows)),
	}
	for i, row := range rows {
		if err := t.Append(row...); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return t, nil
}

// FromValues creates a table from rows of arbitrary values.
// Each value is converted with fmt.Sprint; nil becomes the empty string.
func FromValues(columns []string, rows [][]any) (*Table, error) {
	t := &Table{
		Columns: slices.Clone(columns),
		Rows:    make([][]string, 0, len(rows)),
	}
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = Format(v)
		}
		if err := t.Append(cells...); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return t, nil
}

// Format returns the text form a value takes inside a table.
func Format(v any) string {
	if v == nil {
		return ""
	}
	return normalizeNewlines(fmt.Sprint(v))
}

// Append adds a row to the table. CR LF inside a cell is stored as LF.
func (t *Table) Append(cells ...string) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("%w: got %d cells, want %d", ErrRowWidth, len(cells), len(t.Columns))
	}
	row := make([]string, len(cells))
	for i, cell := range cells {
		row[i] = normalizeNewlines(cell)
	}
	t.Rows = append(t.Rows, row)
	return nil
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// Column returns a copy of every cell in the named column.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Value returns the cell at the given row and named column.
func (t *Table) Value(row int, column string) (string, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	return t.Rows[row][idx], true
}

// Records returns the table as CSV records, header first.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Columns)
	records = append(records, t.Rows...)
	return records
}

// WriteCSV writes the header row followed by every data row. No index column is written.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := writeRecord(cw, w, t.Columns); err != nil {
		return fmt.Errorf("table: write header: %w", err)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("table: row %d: %w", i, ErrRowWidth)
		}
		if err := writeRecord(cw, w, row); err != nil {
			return fmt.Errorf("table: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("table: flush: %w", err)
	}
	return nil
}

// emptyRecord is a single empty field. csv.Writer emits it as a blank line,
// which csv.Reader skips.
var emptyRecord = []byte("\"\"\n")

func writeRecord(cw *csv.Writer, w io.Writer, record []string) error {
	if len(record) != 1 || record[0] != "" {
		return cw.Write(record) //nolint:wrapcheck // wrapped by caller
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err //nolint:wrapcheck // wrapped by caller
	}
	_, err := w.Write(emptyRecord)
	return err //nolint:wrapcheck // wrapped by caller
}

// MarshalCSV returns the CSV encoding of the table.
func (t *Table) MarshalCSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadCSV parses CSV with a header row. Every column is kept as text.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(&bomSkipper{r: r})

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("table: read header: %w", err)
	}

	t := &Table{Columns: header, Rows: [][]string{}}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table: read row %d: %w", len(t.Rows), err)
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// UnmarshalCSV parses a CSV document held in memory.
func UnmarshalCSV(data []byte) (*Table, error) {
	return ReadCSV(bytes.NewReader(data))
}

// bomSkipper drops a leading UTF-8 byte order mark.
type bomSkipper struct {
	r       io.Reader
	checked bool
	pending []byte
}

func (b *bomSkipper) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, head)
		head = head[:n]
		if !bytes.Equal(head, utf8BOM) {
			b.pending = head
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return 0, err
		}
	}
	if len(b.pending) > 0 {
		n := copy(p, b.pending)
		b.pending = b.pending[n:]
		return n, nil
	}
	//nolint:wrapcheck // io.Reader contract
	return b.r.Read(p)
}
