package linked

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"media-index/core/media"
)

const maxSourceSize = 8 << 20

// Fetcher returns the markdown source of a page.
type Fetcher interface {
	FetchSource(ctx context.Context, site media.Site, page string) (string, error)
}

// HTTPFetcher reads page sources from the admin source endpoint.
type HTTPFetcher struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPFetcher creates a fetcher from configuration.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	httpClient := &http.Client{}
	if cfg.TimeoutSeconds > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &HTTPFetcher{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.APIToken,
		http:    httpClient,
	}
}

// FetchSource performs GET /source/{org}/{repo}/{ref}{SourcePath(page)}.
func (f *HTTPFetcher) FetchSource(ctx context.Context, site media.Site, page string) (string, error) {
	endpoint := fmt.Sprintf("%s/source/%s/%s/%s%s", f.baseURL,
		url.PathEscape(site.Org), url.PathEscape(site.Repo), url.PathEscape(site.Ref), SourcePath(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build source request: %w", err)
	}
	req.Header.Set("Accept", "text/markdown, text/plain")
	if f.token != "" {
		req.Header.Set("Authorization", "token "+f.token)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch source of %s: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to fetch source of %s: unexpected status %d", page, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceSize))
	if err != nil {
		return "", fmt.Errorf("failed to read source of %s: %w", page, err)
	}
	return string(body), nil
}

// SourcePath maps a normalized page path to its markdown document:
// "/" -> "/index.md", "/docs/" -> "/docs/index.md", "/a" -> "/a.md".
func SourcePath(page string) string {
	page = media.NormalizePath(page)
	if page == "" {
		page = "/"
	}
	if strings.HasSuffix(page, "/") {
		return page + "index.md"
	}
	return page + ".md"
}
