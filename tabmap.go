package tabmap

import (
	"context"
	"errors"
)

var (
	// ErrNoSource is returned when a preview or materialization is requested
	// without a source workbook.
	ErrNoSource = errors.New("tabmap: source path is not set")
	// ErrSheetNotFound is returned by Workbook.Rows for an unknown sheet.
	ErrSheetNotFound = errors.New("tabmap: sheet not found")
	// ErrUnsupportedFormat is returned when a workbook type cannot be read or written.
	ErrUnsupportedFormat = errors.New("tabmap: unsupported workbook format")
)

// Row is one ordered list of cell values. A nil element is an absent value.
type Row []any

// SheetHeaders holds the header row of one sheet.
type SheetHeaders struct {
	Sheet   string
	Headers []string
}

// RowIterator streams data rows of a sheet. Next returns io.EOF after the last row.
type RowIterator interface {
	Next(ctx context.Context) (Row, error)
	Close() error
}

// Workbook defines the read side of the spreadsheet collaborator.
type Workbook interface {
	// Headers returns the first row of every sheet in workbook order, each value
	// stringified and trimmed, trailing blank cells removed.
	Headers(ctx context.Context) ([]SheetHeaders, error)
	// Rows iterates the rows of a sheet starting at the second row.
	Rows(ctx context.Context, sheet string) (RowIterator, error)
	Close() error
}

// Opener opens a workbook located at a path or URI.
type Opener interface {
	Open(ctx context.Context, path string) (Workbook, error)
}

// SheetWriter writes cells of one output sheet. Row and column are 1-based.
type SheetWriter interface {
	WriteCell(row, col int, value any, numberFormat string) error
}

// WorkbookWriter defines the write side of the spreadsheet collaborator.
// Implementations start from an empty workbook.
type WorkbookWriter interface {
	CreateSheet(name string) (SheetWriter, error)
	Finalize(ctx context.Context, outputPath string) error
}

// Logger defines the interface for logging in tabmap.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
