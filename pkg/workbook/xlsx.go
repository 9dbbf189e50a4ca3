package workbook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	xlsx "github.com/tealeg/xlsx"

	"github.com/user/tabmap"
	"github.com/user/tabmap/internal/config"
	"github.com/user/tabmap/pkg/compression"
	"github.com/user/tabmap/pkg/evaluator"
	"github.com/user/tabmap/pkg/filestorage"
	"github.com/user/tabmap/pkg/xldate"
)

// date1904Offset is the day difference between the 1904 and 1900 date systems.
const date1904Offset = 1462

// ReadXLSX loads an xlsx document.
func ReadXLSX(data []byte) (*Book, error) {
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	return bookFromXLSX(wb), nil
}

// OpenXLSXFile loads an xlsx file from local disk.
func OpenXLSXFile(path string) (*Book, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", path, err)
	}
	return bookFromXLSX(wb), nil
}

func bookFromXLSX(wb *xlsx.File) *Book {
	sheets := make([]Sheet, 0, len(wb.Sheets))
	for _, sh := range wb.Sheets {
		rows := make([]tabmap.Row, 0, len(sh.Rows))
		for _, r := range sh.Rows {
			if r == nil {
				rows = append(rows, tabmap.Row{})
				continue
			}
			row := make(tabmap.Row, len(r.Cells))
			for i, c := range r.Cells {
				row[i] = cellValue(c, wb.Date1904)
			}
			rows = append(rows, row)
		}
		sheets = append(sheets, Sheet{Name: sh.Name, Rows: rows})
	}
	return NewBook(sheets...)
}

// cellValue converts a cell to nil, bool, int64, float64, time.Time or string.
func cellValue(c *xlsx.Cell, date1904 bool) any {
	if c == nil {
		return nil
	}
	switch c.Type() {
	case xlsx.CellTypeBool:
		return c.Bool()
	case xlsx.CellTypeNumeric:
		if c.Value == "" {
			return nil
		}
		f, err := c.Float()
		if err != nil {
			return c.Value
		}
		if c.IsTime() {
			serial := f
			if date1904 {
				serial += date1904Offset
			}
			if t, err := xldate.FromSerial(serial); err == nil {
				return t
			}
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	}
	if c.Value == "" {
		return nil
	}
	return c.Value
}

// XLSXWriter builds an xlsx document in memory and stores it on Finalize.
type XLSXWriter struct {
	file    *xlsx.File
	storage config.StorageConfig
}

// NewXLSXWriter starts an empty workbook. Finalize resolves the output
// location against storage.
func NewXLSXWriter(storage config.StorageConfig) *XLSXWriter {
	return &XLSXWriter{file: xlsx.NewFile(), storage: storage}
}

func (w *XLSXWriter) CreateSheet(name string) (tabmap.SheetWriter, error) {
	sh, err := w.file.AddSheet(name)
	if err != nil {
		return nil, fmt.Errorf("create sheet %q: %w", name, err)
	}
	return &xlsxSheetWriter{sheet: sh}, nil
}

// Bytes returns the encoded workbook.
func (w *XLSXWriter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.file.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// Finalize encodes the workbook and saves it at outputPath. A compression
// suffix such as out.xlsx.gz compresses the encoded bytes.
func (w *XLSXWriter) Finalize(ctx context.Context, outputPath string) error {
	if outputPath == "" {
		return errors.New("output path is empty")
	}
	algo, inner := compression.FromPath(outputPath)
	if ext := Extension(inner); ext != ".xlsx" && ext != ".xlsm" {
		return fmt.Errorf("%w: %s", tabmap.ErrUnsupportedFormat, outputPath)
	}
	data, err := w.Bytes()
	if err != nil {
		return err
	}
	if algo != compression.None {
		c, err := compression.NewCompressor(algo)
		if err != nil {
			return err
		}
		if data, err = c.Compress(data); err != nil {
			return fmt.Errorf("compress %s: %w", outputPath, err)
		}
	}
	store, name, err := filestorage.Resolve(ctx, w.storage, outputPath)
	if err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	if _, err := store.Save(ctx, name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	return nil
}

type xlsxSheetWriter struct {
	sheet *xlsx.Sheet
}

func (s *xlsxSheetWriter) WriteCell(row, col int, value any, numberFormat string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("cell %d,%d out of range", row, col)
	}
	if value == nil {
		return nil
	}
	cell := s.sheet.Cell(row-1, col-1)
	switch v := value.(type) {
	case string:
		cell.SetString(v)
	case bool:
		cell.SetBool(v)
	case int:
		cell.SetInt64(int64(v))
	case int8:
		cell.SetInt64(int64(v))
	case int16:
		cell.SetInt64(int64(v))
	case int32:
		cell.SetInt64(int64(v))
	case int64:
		cell.SetInt64(v)
	case uint8, uint16, uint32, uint, uint64:
		f, _ := evaluator.ToFloat64(v)
		cell.SetFloat(f)
	case float32:
		cell.SetFloat(float64(v))
	case float64:
		cell.SetFloat(v)
	case time.Time:
		cell.SetDateTime(v)
	default:
		cell.SetString(evaluator.ToDisplayString(v))
	}
	if numberFormat != "" {
		cell.NumFmt = numberFormat
	}
	return nil
}
