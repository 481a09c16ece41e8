package discovery

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/muurk/wemo/internal/logging"
	"github.com/muurk/wemo/internal/version"
)

const (
	// DefaultFetchTimeout bounds each description fetch
	DefaultFetchTimeout = 10 * time.Second

	// maxDescriptionSize caps how much of a description body is read
	maxDescriptionSize = 1 << 20
)

// Fetcher retrieves a description document
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches description documents with a plain HTTP GET
type HTTPFetcher struct {
	// Client is the underlying HTTP client; its Timeout bounds each fetch
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher with DefaultFetchTimeout
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{Timeout: DefaultFetchTimeout},
	}
}

// SetTimeout sets the per-request timeout
func (f *HTTPFetcher) SetTimeout(timeout time.Duration) {
	f.Client.Timeout = timeout
}

// Fetch performs a GET on rawURL and returns the body.
// Errors are *FetchError values.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Type: ErrTypeNetwork, Message: "failed to create request for", URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(err, rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDescriptionSize))
	if err != nil {
		if classified := ClassifyNetworkError(err, rawURL); classified.Type == ErrTypeTimeout {
			return nil, classified
		}
		return nil, &FetchError{Type: ErrTypeRead, Message: "failed to read body from", URL: rawURL, Err: err}
	}

	logging.LogHTTPFetch(rawURL, resp.StatusCode, len(body), time.Since(start))
	logging.LogRawBytes("Description body", body)

	return body, nil
}
