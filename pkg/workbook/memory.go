// Package workbook reads and writes tabular workbooks: xlsx through
// tealeg/xlsx, legacy xls through xlrd-go, CSV through encoding/csv, and
// in-memory books for tests and embedding.
package workbook

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/user/tabmap"
	"github.com/user/tabmap/pkg/evaluator"
)

// Sheet is a fully loaded sheet. Rows[0] is the header row.
type Sheet struct {
	Name string
	Rows []tabmap.Row
	// ReadErr, when set, is returned by the row iterator after the last row
	// instead of io.EOF.
	ReadErr error
}

// Book is an immutable in-memory workbook. It is safe for concurrent use.
type Book struct {
	sheets []Sheet
	index  map[string]int
}

// NewBook returns a workbook over sheets. When names repeat the first sheet wins.
func NewBook(sheets ...Sheet) *Book {
	b := &Book{sheets: sheets, index: make(map[string]int, len(sheets))}
	for i, s := range sheets {
		if _, seen := b.index[s.Name]; !seen {
			b.index[s.Name] = i
		}
	}
	return b
}

// SheetNames returns the sheet names in workbook order.
func (b *Book) SheetNames() []string {
	names := make([]string, len(b.sheets))
	for i, s := range b.sheets {
		names[i] = s.Name
	}
	return names
}

func (b *Book) Headers(ctx context.Context) ([]tabmap.SheetHeaders, error) {
	out := make([]tabmap.SheetHeaders, 0, len(b.sheets))
	for _, s := range b.sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var first tabmap.Row
		if len(s.Rows) > 0 {
			first = s.Rows[0]
		}
		out = append(out, tabmap.SheetHeaders{Sheet: s.Name, Headers: HeaderNames(first)})
	}
	return out, nil
}

func (b *Book) Rows(ctx context.Context, sheet string) (tabmap.RowIterator, error) {
	i, ok := b.index[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tabmap.ErrSheetNotFound, sheet)
	}
	s := b.sheets[i]
	var rows []tabmap.Row
	if len(s.Rows) > 1 {
		rows = s.Rows[1:]
	}
	return &sliceIterator{rows: rows, end: s.ReadErr}, nil
}

func (b *Book) Close() error { return nil }

// HeaderNames turns a header row into trimmed names without trailing blanks.
func HeaderNames(row tabmap.Row) []string {
	names := make([]string, len(row))
	last := -1
	for i, v := range row {
		names[i] = strings.TrimSpace(evaluator.ToDisplayString(v))
		if names[i] != "" {
			last = i
		}
	}
	return names[:last+1]
}

type sliceIterator struct {
	rows []tabmap.Row
	pos  int
	end  error
}

func (it *sliceIterator) Next(ctx context.Context) (tabmap.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.rows) {
		if it.end != nil {
			return nil, it.end
		}
		return nil, io.EOF
	}
	row := it.rows[it.pos]
	it.pos++
	return row, nil
}

func (it *sliceIterator) Close() error { return nil }

// Cell is a value written to a MemoryWriter.
type Cell struct {
	Value        any
	NumberFormat string
}

// MemorySheet collects the cells written to one sheet.
type MemorySheet struct {
	Name  string
	Cells map[[2]int]Cell
}

// WriteCell implements tabmap.SheetWriter.
func (s *MemorySheet) WriteCell(row, col int, value any, numberFormat string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("cell %d,%d out of range", row, col)
	}
	s.Cells[[2]int{row, col}] = Cell{Value: value, NumberFormat: numberFormat}
	return nil
}

// MaxRow returns the highest written row number.
func (s *MemorySheet) MaxRow() int {
	max := 0
	for k := range s.Cells {
		if k[0] > max {
			max = k[0]
		}
	}
	return max
}

// Row returns the values of a row up to its last written column.
func (s *MemorySheet) Row(row int) []any {
	cols := make([]int, 0)
	for k := range s.Cells {
		if k[0] == row {
			cols = append(cols, k[1])
		}
	}
	if len(cols) == 0 {
		return nil
	}
	sort.Ints(cols)
	out := make([]any, cols[len(cols)-1])
	for _, c := range cols {
		out[c-1] = s.Cells[[2]int{row, c}].Value
	}
	return out
}

// MemoryWriter is a tabmap.WorkbookWriter that keeps everything in memory.
type MemoryWriter struct {
	Sheets    []*MemorySheet
	Finalized string
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (w *MemoryWriter) CreateSheet(name string) (tabmap.SheetWriter, error) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return nil, fmt.Errorf("duplicate sheet name: %s", name)
		}
	}
	s := &MemorySheet{Name: name, Cells: map[[2]int]Cell{}}
	w.Sheets = append(w.Sheets, s)
	return s, nil
}

// Sheet returns the sheet written under name.
func (w *MemoryWriter) Sheet(name string) (*MemorySheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

func (w *MemoryWriter) Finalize(ctx context.Context, outputPath string) error {
	w.Finalized = outputPath
	return nil
}
