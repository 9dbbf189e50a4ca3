// Package filestorage reads and writes workbook files on local disk, over
// HTTP(S), on FTP servers and on S3 compatible object stores.
package filestorage

import (
	"context"
	"errors"
	"io"
)

// ErrReadOnly is returned by backends that cannot store files.
var ErrReadOnly = errors.New("storage is read only")

// Storage defines the interface for file storage operations.
type Storage interface {
	// Open returns the content of the named file.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Save stores the content from the reader and returns a path/URI to the stored file.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	// Type returns the storage type (local, http, ftp, s3).
	Type() string
}
