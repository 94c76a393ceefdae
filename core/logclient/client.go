package logclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"media-index/core/media"
	"media-index/core/metrics"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// LogName selects one of the remote logs.
type LogName string

const (
	// AuditLog is the page preview/publish/delete log.
	AuditLog LogName = "log"
	// MediaLog is the media-operations log.
	MediaLog LogName = "medialog"
)

const (
	maxSinceDays     = 90
	defaultPageSize  = 1000
	maxErrorBodySize = 512
)

// StatusError is returned when the log endpoint answers with a non-2xx status.
type StatusError struct {
	Log  LogName
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Log, e.Code, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Log, e.Code)
}

// HTTPStatusCode exposes the response code.
func (e *StatusError) HTTPStatusCode() int {
	return e.Code
}

// Source streams the two logs of a site. *Client is the production implementation.
type Source interface {
	StreamAudit(ctx context.Context, site media.Site, since int64, onPage func([]media.AuditEntry)) error
	StreamMedia(ctx context.Context, site media.Site, since int64, onPage func([]media.MediaLogEntry)) error
}

// Client fetches paginated logs over HTTP.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
	logger   *zap.Logger
	now      func() time.Time
}

// NewClient creates a log client from configuration.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	httpClient := &http.Client{}
	if cfg.TimeoutSeconds > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		token:    cfg.APIToken,
		pageSize: pageSize,
		http:     httpClient,
		logger:   logger.Named("logclient"),
		now:      time.Now,
	}
}

// StreamAudit streams the preview/audit log.
func (c *Client) StreamAudit(ctx context.Context, site media.Site, since int64, onPage func([]media.AuditEntry)) error {
	return stream(ctx, c, AuditLog, site, since, onPage)
}

// StreamMedia streams the media-operations log.
func (c *Client) StreamMedia(ctx context.Context, site media.Site, since int64, onPage func([]media.MediaLogEntry)) error {
	return stream(ctx, c, MediaLog, site, since, onPage)
}

type page[T any] struct {
	Entries   []T    `json:"entries"`
	NextToken string `json:"nextToken"`
}

// stream walks the pages of one log. since is an epoch-millisecond watermark;
// zero requests the complete history.
func stream[T any](ctx context.Context, c *Client, name LogName, site media.Site, since int64, onPage func([]T)) error {
	l := c.logger.With(zap.String("log", string(name)), zap.String("site", site.ID))

	sinceParam := ""
	if since > 0 {
		sinceParam = SinceParam(time.UnixMilli(since), c.now())
	}

	token := ""
	for pageNo := 0; ; pageNo++ {
		p, err := fetchPage[T](ctx, c, name, site, sinceParam, token)
		if err != nil {
			if pageNo == 0 || ctx.Err() != nil {
				return err
			}
			// Follow-up pages degrade to what was already delivered.
			l.Warn("Log stream truncated", zap.Int("page", pageNo), zap.Error(err))
			metrics.LogStreamsTruncated.WithLabelValues(string(name)).Inc()
			return nil
		}

		metrics.LogEntriesFetched.WithLabelValues(string(name)).Add(float64(len(p.Entries)))
		if onPage != nil && len(p.Entries) > 0 {
			onPage(p.Entries)
		}

		if p.NextToken == "" || p.NextToken == token {
			return nil
		}
		token = p.NextToken
	}
}

func fetchPage[T any](ctx context.Context, c *Client, name LogName, site media.Site, since, nextToken string) (*page[T], error) {
	q := url.Values{}
	if since != "" {
		q.Set("since", since)
	}
	q.Set("limit", strconv.Itoa(c.pageSize))
	if nextToken != "" {
		q.Set("nextToken", nextToken)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s/%s?%s", c.baseURL, name,
		url.PathEscape(site.Org), url.PathEscape(site.Repo), url.PathEscape(site.Ref), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &StatusError{Log: name, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var p page[T]
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%s: failed to decode page: %w", name, err)
	}
	return &p, nil
}

// SinceParam renders the age of from as the relative duration the log endpoint
// accepts: whole hours below one day ("5h"), otherwise whole days ("3d") capped
// at 90. Partial units round up so no entry newer than from is skipped.
func SinceParam(from, now time.Time) string {
	age := now.Sub(from)
	if age < time.Hour {
		age = time.Hour
	}
	if age < 24*time.Hour {
		hours := int((age + time.Hour - 1) / time.Hour)
		if hours >= 24 {
			return "1d"
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int((age + 24*time.Hour - 1) / (24 * time.Hour))
	if days > maxSinceDays {
		days = maxSinceDays
	}
	return fmt.Sprintf("%dd", days)
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
