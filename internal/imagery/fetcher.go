package imagery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// defaultMaxBytes bounds a downloaded image; cloud maps are a few MB.
const defaultMaxBytes = 32 << 20

// Fetcher retrieves raw image bytes from a remote source, falling back to
// mirrors in order when the primary fails.
type Fetcher struct {
	sourceURL  string
	mirrors    []string
	maxBytes   int64
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for sourceURL. maxBytes <= 0 selects the
// default limit; a nil logger discards mirror failures.
func NewFetcher(sourceURL string, maxBytes int64, logger *slog.Logger, mirrors ...string) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Fetcher{
		sourceURL: sourceURL,
		mirrors:   mirrors,
		maxBytes:  maxBytes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch performs an HTTP GET against the source, then each mirror, and
// returns the first successful body.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	data, err := f.fetchOne(ctx, f.sourceURL)
	if err == nil {
		return data, nil
	}

	errs := []error{err}
	for _, u := range f.mirrors {
		f.logger.Warn("image fetch failed, trying mirror", "error", err, "mirror", u)
		data, err = f.fetchOne(ctx, u)
		if err == nil {
			return data, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("response from %s exceeds %d byte limit", url, f.maxBytes)
	}

	return body, nil
}
