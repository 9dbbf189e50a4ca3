package workbook

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/yamitzky/xlrd-go/xlrd"

	"github.com/user/tabmap"
)

// ReadXLS loads a legacy BIFF workbook. xlrd opens workbooks by path, so the
// bytes are spooled to a temporary file first.
func ReadXLS(data []byte) (*Book, error) {
	tmp, err := os.CreateTemp("", "tabmap-*.xls")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	return OpenXLSFile(tmp.Name())
}

// OpenXLSFile loads a legacy BIFF workbook from local disk.
func OpenXLSFile(path string) (*Book, error) {
	book, err := xlrd.OpenWorkbook(path, &xlrd.OpenWorkbookOptions{
		Logfile:        io.Discard,
		FormattingInfo: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open xls %s: %w", path, err)
	}

	sheets := make([]Sheet, 0, len(book.SheetNames()))
	for i := range book.SheetNames() {
		sh, err := book.SheetByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("open xls %s: %w", path, err)
		}
		rows := make([]tabmap.Row, sh.NRows)
		for r := 0; r < sh.NRows; r++ {
			row := make(tabmap.Row, sh.NCols)
			for c := 0; c < sh.NCols; c++ {
				row[c] = xlsCellValue(book, sh, r, c)
			}
			rows[r] = row
		}
		sheets = append(sheets, Sheet{Name: sh.Name, Rows: rows})
	}
	return NewBook(sheets...), nil
}

func xlsCellValue(book *xlrd.Book, sh *xlrd.Sheet, r, c int) any {
	value := sh.RawCellValue(r, c)
	switch sh.RawCellType(r, c) {
	case xlrd.XL_CELL_EMPTY, xlrd.XL_CELL_BLANK, xlrd.XL_CELL_ERROR:
		return nil
	case xlrd.XL_CELL_BOOLEAN:
		switch v := value.(type) {
		case bool:
			return v
		case int:
			return v != 0
		case float64:
			return v != 0
		}
		return value
	case xlrd.XL_CELL_NUMBER, xlrd.XL_CELL_DATE:
		f, ok := value.(float64)
		if !ok {
			return value
		}
		if isXLSDate(book, sh.RawCellXFIndex(r, c)) {
			if t, err := xlrd.XldateAsDatetime(f, book.Datemode); err == nil {
				return t
			}
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case xlrd.XL_CELL_TEXT:
		if s, ok := value.(string); ok && s == "" {
			return nil
		}
	}
	return value
}

// builtinDateFormats are the BIFF format keys reserved for dates and times.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true,
	22: true, 27: true, 30: true, 36: true, 50: true, 57: true, 58: true,
}

func isXLSDate(book *xlrd.Book, xf int) bool {
	if xf < 0 || xf >= len(book.XFList) {
		return false
	}
	key := book.XFList[xf].FormatKey
	if builtinDateFormats[key] {
		return true
	}
	format := book.FormatMap[key]
	if format == nil || format.FormatString == "" {
		return false
	}
	return xlrd.IsDateFormatString(book, format.FormatString)
}
