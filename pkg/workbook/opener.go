package workbook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/user/tabmap"
	"github.com/user/tabmap/internal/config"
	"github.com/user/tabmap/pkg/compression"
	"github.com/user/tabmap/pkg/filestorage"
)

// Opener loads workbooks from local paths, http(s) or ftp(s) URLs and s3:// locations
// and picks the reader from the file extension. A trailing .gz, .zst, .lz4,
// .sz or .snappy extension is decompressed first.
type Opener struct {
	storage config.StorageConfig
}

func NewOpener(storage config.StorageConfig) *Opener {
	return &Opener{storage: storage}
}

func (o *Opener) Open(ctx context.Context, location string) (tabmap.Workbook, error) {
	algo, inner := compression.FromPath(location)
	ext := Extension(inner)
	if !Supported(ext) {
		return nil, fmt.Errorf("%w: %s", tabmap.ErrUnsupportedFormat, location)
	}

	store, name, err := filestorage.Resolve(ctx, o.storage, location)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	rc, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	if algo != compression.None {
		c, err := compression.NewCompressor(algo)
		if err != nil {
			return nil, err
		}
		if data, err = c.Decompress(data); err != nil {
			return nil, fmt.Errorf("decompress %s: %w", location, err)
		}
	}
	return Decode(inner, data)
}

// Decode parses data according to the extension of name.
func Decode(name string, data []byte) (*Book, error) {
	switch Extension(name) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(data)
	case ".xls":
		return ReadXLS(data)
	case ".csv":
		return ReadCSV(name, bytes.NewReader(data))
	}
	return nil, fmt.Errorf("%w: %s", tabmap.ErrUnsupportedFormat, name)
}

// Extension returns the lower-cased extension of a path or URL, ignoring any
// query string.
func Extension(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	return strings.ToLower(path.Ext(location))
}

// Supported reports whether ext can be read.
func Supported(ext string) bool {
	switch ext {
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return true
	}
	return false
}
