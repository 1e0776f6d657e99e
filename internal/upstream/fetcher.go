// Package upstream retrieves raw DIDBase text for one fetch unit from the
// index service or a raw-text mirror and stores it in the cache directory.
package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"didbase/internal/didbase"
	"didbase/internal/types"
)

// DefaultBaseURL is the public DIDBase query endpoint.
const DefaultBaseURL = "https://lgdc.uml.edu/common/DIDBGetValues"

// queryDateLayout is the service's date format.
const queryDateLayout = "2006.01.02 15:04:05"

// QueryURL builds the URL that serves unit's raw text under base. An empty
// fields list requests didbase.Characteristics.
//
// http and https bases address the DIDBGetValues query endpoint. ftp and s3
// bases address a mirror laid out as <base>/<station>/<stem>.txt.
func QueryURL(base string, unit types.FetchUnit, fields []string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", types.NewAppErrorWithDetails(types.ErrCodeInvalidParam,
			"invalid base url", err, map[string]any{"url": base})
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if len(fields) == 0 {
			fields = didbase.Characteristics
		}
		q := url.Values{}
		q.Set("ursiCode", unit.Station)
		q.Set("charName", strings.Join(fields, ","))
		q.Set("DMUF", fmt.Sprint(unit.DMUF))
		q.Set("fromDate", unit.PeriodStart.Format(queryDateLayout))
		q.Set("toDate", unit.PeriodEnd.Format(queryDateLayout))
		u.RawQuery = q.Encode()
		return u.String(), nil
	case "ftp", "s3":
		return strings.TrimRight(u.String(), "/") + "/" + unit.Station + "/" + unit.Stem() + ".txt", nil
	default:
		return "", types.NewAppErrorWithDetails(types.ErrCodeUnsupportedScheme,
			fmt.Sprintf("unsupported url scheme %q", u.Scheme), nil, map[string]any{"url": base})
	}
}

// Fetcher downloads raw text for fetch units.
type Fetcher struct {
	baseURL    string
	transports map[string]Transport
	timeout    time.Duration
	logger     *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTransport registers t for scheme, replacing any previous registration.
func WithTransport(scheme string, t Transport) FetcherOption {
	return func(f *Fetcher) {
		f.transports[strings.ToLower(scheme)] = t
	}
}

// WithTimeout bounds each transport call.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFetcher creates a Fetcher for baseURL. Without options only http and
// https are served, by a BaseClient with the default retry policy.
func NewFetcher(baseURL string, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	f := &Fetcher{
		baseURL:    baseURL,
		transports: make(map[string]Transport),
		timeout:    DefaultTimeout,
		logger:     logger,
	}

	httpT := NewHTTPTransport(NewBaseClient(&http.Client{}, "didbase", DefaultRetryPolicy(), ""))
	f.transports["http"] = httpT
	f.transports["https"] = httpT

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URLFor returns the URL Fetch would request for unit.
func (f *Fetcher) URLFor(unit types.FetchUnit) (string, error) {
	return QueryURL(f.baseURL, unit, nil)
}

// Fetch stores unit's raw text at dest and returns the source URL.
//
// When dest exists and overwrite is false no request is made. Any transport
// or write failure removes the partial dest and yields ErrCodeConnection.
func (f *Fetcher) Fetch(ctx context.Context, unit types.FetchUnit, dest string, overwrite bool) (string, error) {
	rawURL, err := f.URLFor(unit)
	if err != nil {
		return "", err
	}
	logger := types.LoggerFromContext(ctx, f.logger).With("unit", unit.Stem(), "url", rawURL)

	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			logger.Debug("raw text present, skipping download", "path", dest)
			return rawURL, nil
		}
	}

	scheme := strings.ToLower(rawURL[:strings.Index(rawURL, ":")])
	t, ok := f.transports[scheme]
	if !ok {
		return "", types.NewAppErrorWithDetails(types.ErrCodeUnsupportedScheme,
			fmt.Sprintf("no transport registered for scheme %q", scheme), nil,
			map[string]any{"url": rawURL})
	}

	start := time.Now()
	n, err := f.download(ctx, t, rawURL, dest)
	if err != nil {
		_ = os.Remove(dest)
		logger.Error("download failed", "path", dest, "error", err)

		details := map[string]any{"url": rawURL, "path": dest, "stage": "fetch"}
		if inner, ok := types.AsAppError(err); ok {
			details["cause_code"] = string(inner.Code)
		}
		return "", types.NewAppErrorWithDetails(types.ErrCodeConnection,
			fmt.Sprintf("could not download %s", rawURL), err, details)
	}

	logger.Info("downloaded raw text",
		"path", dest,
		"bytes", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rawURL, nil
}

func (f *Fetcher) download(ctx context.Context, t Transport, rawURL, dest string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := t.Get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
