package ports

import (
	"context"
	"io"
)

// Transport fetches remote resources.
//
//go:generate go run go.uber.org/mock/mockgen -source=transport.go -destination=mocks/mock_transport.go -package=mocks
type Transport interface {
	// Get issues a GET request for url with the given headers. A non-2xx status
	// is not an error at this level; callers inspect StatusCode.
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// Response is a fetched resource.
type Response interface {
	// StatusCode returns the numeric HTTP status.
	StatusCode() int
	// Header returns the first value of the named header, matched case-insensitively.
	Header(name string) string
	// Body returns the response byte stream. The caller must close it.
	Body() io.ReadCloser
	// Text reads the whole body and closes it.
	Text() (string, error)
}
