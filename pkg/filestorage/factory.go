package filestorage

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/tabmap/internal/config"
)

func NewStorage(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Type) {
	case "s3":
		return newS3(ctx, cfg.S3)
	case "local", "":
		return NewLocalStorage(cfg.LocalDir), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

func newS3(ctx context.Context, cfg config.S3Config) (*S3Storage, error) {
	return NewS3Storage(
		ctx,
		cfg.Endpoint,
		cfg.Region,
		cfg.Bucket,
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		cfg.UseSSL,
	)
}

// Resolve picks the backend for a location and returns it together with the
// name to use on it. s3://bucket/key targets S3, ftp(s):// URLs target an FTP
// server, http(s) URLs are read over HTTP and anything else is a path for the
// configured default storage.
func Resolve(ctx context.Context, cfg config.StorageConfig, location string) (Storage, string, error) {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		bucket, key, err := ParseS3URI(location)
		if err != nil {
			return nil, "", err
		}
		s, err := newS3(ctx, cfg.S3)
		if err != nil {
			return nil, "", err
		}
		return s.WithBucket(bucket), key, nil
	case strings.HasPrefix(lower, "ftp://"), strings.HasPrefix(lower, "ftps://"):
		s, name, err := ParseFTPURI(location)
		if err != nil {
			return nil, "", err
		}
		return s, name, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return NewHTTPStorage(nil, nil), location, nil
	}
	s, err := NewStorage(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	return s, location, nil
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(strings.ToLower(uri), "s3://") {
		return "", "", fmt.Errorf("invalid s3 location %q: want s3://bucket/key", uri)
	}
	rem := uri[len("s3://"):]
	i := strings.Index(rem, "/")
	if i <= 0 {
		return "", "", fmt.Errorf("invalid s3 location %q: want s3://bucket/key", uri)
	}
	bucket = rem[:i]
	key = strings.TrimPrefix(rem[i+1:], "/")
	if key == "" {
		return "", "", fmt.Errorf("invalid s3 location %q: missing key", uri)
	}
	return bucket, key, nil
}
