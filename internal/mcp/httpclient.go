package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/history"
	"github.com/claude/liftlog/internal/progress"
	"github.com/claude/liftlog/internal/session"
)

// HTTPClient implements DataSource by calling the LiftLog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but the
// tracker runs on another machine (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
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
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func (c *HTTPClient) ActiveSession(ctx context.Context) (*session.ActiveSession, error) {
	body, err := c.get(ctx, "/api/v1/session/", nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Session *session.ActiveSession `json:"session"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("httpclient: decode session: %w", err)
	}
	return payload.Session, nil
}

func (c *HTTPClient) History(ctx context.Context) ([]history.Record, error) {
	body, err := c.get(ctx, "/api/v1/history", nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Records []history.Record `json:"records"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("httpclient: decode history: %w", err)
	}
	return payload.Records, nil
}

func (c *HTTPClient) WeekCompletion(ctx context.Context, week int) (progress.WeekStats, error) {
	params := url.Values{}
	params.Set("week", strconv.Itoa(week))

	body, err := c.get(ctx, "/api/v1/completion", params)
	if err != nil {
		return progress.WeekStats{}, err
	}

	var payload struct {
		Stats progress.WeekStats `json:"stats"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return progress.WeekStats{}, fmt.Errorf("httpclient: decode completion: %w", err)
	}
	return payload.Stats, nil
}
