package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/aiassist/pkg/model"
)

// Assistant is the interface for the remote AI assistant API
type Assistant interface {
	// Query asks the backend to run a text function and returns the generated text
	Query(ctx context.Context, function model.FunctionType, style model.Style, query string) (string, error)
	// SubmitFeedback sends a rating for a displayed response
	SubmitFeedback(ctx context.Context, feedback *model.FeedbackSubmission) error
	// FeedbackStats fetches the aggregate feedback statistics
	FeedbackStats(ctx context.Context) (*model.FeedbackStats, error)

	Health(ctx context.Context) (*model.HealthStatus, error)
	Styles(ctx context.Context, function model.FunctionType) ([]model.StyleOption, error)
	RemoteHistory(ctx context.Context, page, pageSize int) (*model.QueryHistoryPage, error)
}

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second
)

// AssistantClient implements Assistant over HTTP
type AssistantClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

type AssistantOption func(*AssistantClient)

func WithHTTPClient(client *http.Client) AssistantOption {
	return func(c *AssistantClient) {
		c.httpClient = client
	}
}

// WithTimeout replaces the timeout of the underlying HTTP client.
func WithTimeout(timeout time.Duration) AssistantOption {
	return func(c *AssistantClient) {
		c.httpClient.Timeout = timeout
	}
}

func WithUserAgent(ua string) AssistantOption {
	return func(c *AssistantClient) {
		c.userAgent = ua
	}
}

func NewAssistant(baseURL string, opts ...AssistantOption) (*AssistantClient, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse base URL", goerr.V("base_url", baseURL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, goerr.New("base URL must be http or https", goerr.V("base_url", baseURL))
	}

	c := &AssistantClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "aiassist",
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type queryRequest struct {
	FunctionType model.FunctionType `json:"function_type"`
	Style        model.Style        `json:"style"`
	Query        string             `json:"query"`
}

// envelope covers every response shape the backend produces.
type envelope struct {
	Success  *bool           `json:"success"`
	Response *string         `json:"response"`
	Message  string          `json:"message"`
	Error    string          `json:"error"`
	Data     json.RawMessage `json:"data"`
	Styles   json.RawMessage `json:"styles"`
}

func (e *envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

func (c *AssistantClient) Query(ctx context.Context, function model.FunctionType, style model.Style, query string) (string, error) {
	req := queryRequest{
		FunctionType: function,
		Style:        style,
		Query:        query,
	}

	var resp envelope
	status, err := c.do(ctx, http.MethodPost, "/api/query/", req, &resp)
	if err != nil {
		return "", c.fail(err, OpQuery, status, &resp)
	}
	if resp.failed() {
		return "", c.fail(nil, OpQuery, status, &resp)
	}
	if resp.Response == nil {
		return "", nil
	}

	return *resp.Response, nil
}

func (c *AssistantClient) SubmitFeedback(ctx context.Context, feedback *model.FeedbackSubmission) error {
	var resp envelope
	status, err := c.do(ctx, http.MethodPost, "/api/feedback/", feedback, &resp)
	if err != nil {
		return c.fail(err, OpFeedback, status, &resp)
	}
	if resp.failed() {
		return c.fail(nil, OpFeedback, status, &resp)
	}
	return nil
}

func (c *AssistantClient) FeedbackStats(ctx context.Context) (*model.FeedbackStats, error) {
	var resp envelope
	status, err := c.do(ctx, http.MethodGet, "/api/feedback-stats/", nil, &resp)
	if err != nil {
		return nil, c.fail(err, OpFeedbackStats, status, &resp)
	}
	if resp.failed() {
		return nil, c.fail(nil, OpFeedbackStats, status, &resp)
	}

	// A bare {message} without data means there is nothing to aggregate yet.
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		if resp.Message != "" {
			return &model.FeedbackStats{NoData: true, Message: resp.Message}, nil
		}
		return nil, c.fail(goerr.New("stats response has no data"), OpFeedbackStats, status, &resp)
	}

	var raw struct {
		Message       string                        `json:"message"`
		TotalFeedback *int                          `json:"total_feedback"`
		AverageRating float64                       `json:"average_rating"`
		FunctionStats map[string]model.FunctionStat `json:"function_stats"`
	}
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		return nil, c.fail(goerr.Wrap(err, "failed to decode stats data"), OpFeedbackStats, status, &resp)
	}

	if raw.TotalFeedback == nil && raw.Message != "" {
		return &model.FeedbackStats{NoData: true, Message: raw.Message}, nil
	}

	stats := &model.FeedbackStats{
		AverageRating: raw.AverageRating,
		FunctionStats: raw.FunctionStats,
	}
	if raw.TotalFeedback != nil {
		stats.TotalFeedback = *raw.TotalFeedback
	}
	if stats.FunctionStats == nil {
		stats.FunctionStats = map[string]model.FunctionStat{}
	}

	return stats, nil
}

func (c *AssistantClient) Health(ctx context.Context) (*model.HealthStatus, error) {
	var raw json.RawMessage
	status, err := c.do(ctx, http.MethodGet, "/api/health/", nil, &raw)
	if err != nil {
		return nil, c.fail(err, OpHealth, status, nil)
	}

	var health model.HealthStatus
	if err := json.Unmarshal(raw, &health); err != nil {
		return nil, c.fail(goerr.Wrap(err, "failed to decode health status"), OpHealth, status, nil)
	}
	return &health, nil
}

func (c *AssistantClient) Styles(ctx context.Context, function model.FunctionType) ([]model.StyleOption, error) {
	var resp envelope
	path := "/api/styles/" + url.PathEscape(string(function)) + "/"
	status, err := c.do(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, c.fail(err, OpStyles, status, &resp)
	}
	if resp.failed() {
		return nil, c.fail(nil, OpStyles, status, &resp)
	}

	var styles []model.StyleOption
	if len(resp.Styles) > 0 {
		if err := json.Unmarshal(resp.Styles, &styles); err != nil {
			return nil, c.fail(goerr.Wrap(err, "failed to decode styles"), OpStyles, status, &resp)
		}
	}
	return styles, nil
}

func (c *AssistantClient) RemoteHistory(ctx context.Context, page, pageSize int) (*model.QueryHistoryPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var resp envelope
	status, err := c.do(ctx, http.MethodGet, "/api/history/?"+q.Encode(), nil, &resp)
	if err != nil {
		return nil, c.fail(err, OpRemoteHistory, status, &resp)
	}
	if resp.failed() {
		return nil, c.fail(nil, OpRemoteHistory, status, &resp)
	}

	var result model.QueryHistoryPage
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, c.fail(goerr.Wrap(err, "failed to decode history page"), OpRemoteHistory, status, &resp)
		}
	}
	return &result, nil
}

// do sends one request. A non-2xx status is returned as an error after the
// body has been decoded into out, so callers can read the error fields.
func (c *AssistantClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, goerr.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create request", goerr.V("path", path))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to send request",
			goerr.V("method", method),
			goerr.V("path", path),
		)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, goerr.Wrap(err, "failed to read response body")
	}

	decodeErr := error(nil)
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			decodeErr = goerr.Wrap(err, "failed to decode response body",
				goerr.V("status", resp.StatusCode),
				goerr.V("body", truncateBody(data)),
			)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, goerr.New("unexpected status code",
			goerr.V("method", method),
			goerr.V("path", path),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", truncateBody(data)),
		)
	}

	return resp.StatusCode, decodeErr
}

func truncateBody(data []byte) string {
	const limit = 512
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
