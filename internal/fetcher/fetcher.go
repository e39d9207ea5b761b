package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	// Any non-2xx status is returned as a *StatusError.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
