package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds each transport call.
const DefaultTimeout = 15 * time.Second

// Transport retrieves the body at a URL. Implementations are registered on a
// Fetcher per URL scheme.
type Transport interface {
	Get(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, rawURL string) (io.ReadCloser, error)

// Get calls f.
func (f TransportFunc) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f(ctx, rawURL)
}

// HTTPTransport fetches over http and https through a BaseClient.
type HTTPTransport struct {
	client *BaseClient
}

// NewHTTPTransport wraps client.
func NewHTTPTransport(client *BaseClient) *HTTPTransport {
	return &HTTPTransport{client: client}
}

// Get issues a GET and returns the body of a 2xx response.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("index service returned %s", resp.Status)
	}
	return resp.Body, nil
}

// splitMirrorURL returns the host and the slash-free object path of an ftp or
// s3 mirror URL.
func splitMirrorURL(rawURL string) (*url.URL, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parsing mirror url: %w", err)
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("mirror url %q has no host", rawURL)
	}
	path := u.Path
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if path == "" {
		return nil, "", fmt.Errorf("mirror url %q has no object path", rawURL)
	}
	return u, path, nil
}
