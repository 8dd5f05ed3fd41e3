// Package transport implements the fetch collaborator over net/http.
package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultTimeout bounds connection setup and response headers. Bodies may
// stream for longer.
const DefaultTimeout = 30 * time.Second

var _ ports.Transport = (*HTTPTransport)(nil)

// HTTPTransport implements ports.Transport using an http.Client.
type HTTPTransport struct {
	client *http.Client
}

// New creates an HTTPTransport with default settings.
func New() *HTTPTransport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = DefaultTimeout
	// Ranged payloads must arrive byte-exact.
	t.DisableCompression = true
	return &HTTPTransport{client: &http.Client{Transport: t}}
}

// NewWithClient creates an HTTPTransport with a custom HTTP client (useful for testing).
func NewWithClient(client *http.Client) *HTTPTransport {
	return &HTTPTransport{client: client}
}

// Get issues a GET request. Transport-level failures are returned as
// domain.ErrTransport carrying the url, the failing operation and the
// system error code when available.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string, headers map[string]string) (ports.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, transportError(rawURL, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, transportError(rawURL, err)
	}

	return &Response{resp: resp}, nil
}

func transportError(rawURL string, err error) error {
	wrapped := zerr.With(zerr.Wrap(err, "request failed"), "url", rawURL)

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		wrapped = zerr.With(wrapped, "op", urlErr.Op)
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		wrapped = zerr.With(wrapped, "code", errno.Error())
	}

	return errors.Join(wrapped, domain.ErrTransport)
}

var _ ports.Response = (*Response)(nil)

// Response adapts an *http.Response to ports.Response.
type Response struct {
	resp *http.Response
}

// StatusCode returns the numeric HTTP status.
func (r *Response) StatusCode() int {
	return r.resp.StatusCode
}

// Header returns the first value of the named header, case-insensitively.
func (r *Response) Header(name string) string {
	return r.resp.Header.Get(name)
}

// Body returns the response byte stream.
func (r *Response) Body() io.ReadCloser {
	return r.resp.Body
}

// Text reads the whole body and closes it.
func (r *Response) Text() (string, error) {
	defer r.resp.Body.Close() //nolint:errcheck // Best effort close in defer

	data, err := io.ReadAll(r.resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
