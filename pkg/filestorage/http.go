package filestorage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPStorage downloads files by URL. Names are absolute http(s) URLs.
type HTTPStorage struct {
	client  *http.Client
	headers map[string]string
}

func NewHTTPStorage(client *http.Client, headers map[string]string) *HTTPStorage {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPStorage{client: client, headers: headers}
}

func (s *HTTPStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, name, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: http status %d", name, resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *HTTPStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	return "", ErrReadOnly
}

func (s *HTTPStorage) Type() string {
	return "http"
}
