package storage

import (
	"context"
	"io"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// Fetcher resolves an upload reference to its stored bytes.
type Fetcher interface {
	Fetch(ctx context.Context, objectName string) (io.ReadCloser, error)
}
