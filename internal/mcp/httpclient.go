package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/fitjoin/internal/models"
	"github.com/meltforce/fitjoin/internal/pipeline"
)

// HTTPClient implements DataSource by calling the fitjoin REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. An empty
// apiKey sends no X-API-Key header.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// statusError is a non-200 API response.
type statusError struct {
	path   string
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("httpclient: %s returned %d: %s", e.path, e.status, strings.TrimSpace(string(e.body)))
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{path: path, status: resp.StatusCode, body: body}
	}

	return body, nil
}

// getJSON fetches path and decodes the body into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, f models.Filter, v any) error {
	body, err := c.get(ctx, path, filterParams(f))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func filterParams(f models.Filter) url.Values {
	v := url.Values{}
	if len(f.UserIDs) > 0 {
		ids := make([]string, len(f.UserIDs))
		for i, id := range f.UserIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		v.Set("user", strings.Join(ids, ","))
	}
	if f.Start != "" {
		v.Set("start", string(f.Start))
	}
	if f.End != "" {
		v.Set("end", string(f.End))
	}
	return v
}

func (c *HTTPClient) Leaderboard(ctx context.Context, f models.Filter) (*pipeline.Leaderboard, error) {
	var lb pipeline.Leaderboard
	if err := c.getJSON(ctx, "/api/v1/leaderboard", f, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

func (c *HTTPClient) UserDetail(ctx context.Context, userID int64, f models.Filter) (*pipeline.UserDetail, error) {
	var d pipeline.UserDetail
	err := c.getJSON(ctx, "/api/v1/users/"+strconv.FormatInt(userID, 10), f, &d)
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) TimeBuckets(ctx context.Context, f models.Filter) ([]models.TimeBucketAverage, error) {
	var buckets []models.TimeBucketAverage
	if err := c.getJSON(ctx, "/api/v1/buckets", f, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (c *HTTPClient) Records(ctx context.Context, f models.Filter) ([]models.MergedDailyRecord, error) {
	var records []models.MergedDailyRecord
	if err := c.getJSON(ctx, "/api/v1/records", f, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *HTTPClient) Diagnostics(ctx context.Context, f models.Filter) (*pipeline.RunDiagnostics, error) {
	var d pipeline.RunDiagnostics
	if err := c.getJSON(ctx, "/api/v1/diagnostics", f, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) Users(ctx context.Context, f models.Filter) ([]int64, error) {
	var users []int64
	if err := c.getJSON(ctx, "/api/v1/users", f, &users); err != nil {
		return nil, err
	}
	return users, nil
}
