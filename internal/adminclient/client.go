// Package adminclient talks to the registration API as an administrator:
// paged listing, deletion, stats and the live admin feed.
package adminclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"registration-service/internal/catalog"
	"registration-service/internal/registration"

	"github.com/hashicorp/go-retryablehttp"
)

const maxResponseBytes = 8 << 20

// APIError is a non-2xx response. Message is the server's message verbatim.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL *url.URL
	http    *retryablehttp.Client
	token   string
	logger  *slog.Logger
}

type Option func(*Client)

// WithToken authenticates admin requests with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetries sets how many times idempotent requests are retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.http.RetryMax = n }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http.HTTPClient = hc }
}

func New(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = logger
	rc.CheckRetry = checkRetry
	// hand the last response back instead of a generic "giving up" error
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{baseURL: u, http: rc, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type noRetryKey struct{}

// checkRetry never repeats a request marked as non-idempotent.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if v, _ := ctx.Value(noRetryKey{}).(bool); v {
		return false, ctx.Err()
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// SetToken replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

// BaseURL returns the server root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// WebsocketURL is the realtime endpoint, carrying the token as a query
// parameter because browsers and most dialers cannot set headers on upgrade.
func (c *Client) WebsocketURL() string {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	if c.token != "" {
		q := url.Values{}
		q.Set("token", c.token)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
	Data    json.RawMessage   `json:"data"`
}

// do sends the request and returns the body of a 2xx response. Any other
// status becomes an *APIError carrying the server's message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	if method == http.MethodPost {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp.StatusCode, raw)
	}
	return raw, nil
}

func apiError(status int, raw []byte) *APIError {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return &APIError{Status: status, Message: env.Message, Fields: env.Errors}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}

// data decodes the data member of a {success, data} envelope into out.
func data(raw []byte, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("decode response: missing data")
	}
	return json.Unmarshal(env.Data, out)
}

// Query selects one page of the admin list.
type Query struct {
	Page     int
	PageSize int
	Search   string
	Service  string
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Service != "" {
		v.Set("service", q.Service)
	}
	return v
}

type listEnvelope struct {
	Data            []json.RawMessage `json:"data"`
	Total           int               `json:"total"`
	Page            int               `json:"page"`
	PageSize        int               `json:"pageSize"`
	TotalPages      int               `json:"totalPages"`
	HasNextPage     bool              `json:"hasNextPage"`
	HasPreviousPage bool              `json:"hasPreviousPage"`
}

// List fetches one page. Records that do not decode are skipped.
func (c *Client) List(ctx context.Context, q Query) (*registration.ListResult, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/registrations", q.values(), nil)
	if err != nil {
		return nil, err
	}

	var page listEnvelope
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}

	result := &registration.ListResult{
		Records:         make([]registration.Registration, 0, len(page.Data)),
		Total:           page.Total,
		Page:            page.Page,
		PageSize:        page.PageSize,
		TotalPages:      page.TotalPages,
		HasNextPage:     page.HasNextPage,
		HasPreviousPage: page.HasPreviousPage,
	}
	for i, item := range page.Data {
		reg, ok := decodeRecord(item)
		if !ok {
			c.logger.Warn("skipping malformed registration in list response", "index", i)
			continue
		}
		result.Records = append(result.Records, reg)
	}
	return result, nil
}

// decodeRecord accepts a record only if it decodes and carries an email.
// A missing id is replaced by a placeholder.
func decodeRecord(raw json.RawMessage) (registration.Registration, bool) {
	var reg registration.Registration
	if err := json.Unmarshal(raw, &reg); err != nil {
		return registration.Registration{}, false
	}
	return withPlaceholder(reg)
}

func (c *Client) Get(ctx context.Context, id string) (*registration.Registration, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/registrations/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var reg registration.Registration
	if err := data(raw, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Delete removes a registration and returns the server's confirmation message.
func (c *Client) Delete(ctx context.Context, id string) (string, error) {
	raw, err := c.do(ctx, http.MethodDelete, "/api/registrations/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return "", err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return env.Message, nil
}

func (c *Client) Stats(ctx context.Context) (*registration.Stats, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/registrations/stats", nil, nil)
	if err != nil {
		return nil, err
	}
	var stats registration.Stats
	if err := data(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Create submits a registration. It is never retried.
func (c *Client) Create(ctx context.Context, in registration.Input) (*registration.Registration, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/registrations", nil, in)
	if err != nil {
		return nil, err
	}
	var reg registration.Registration
	if err := data(raw, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login obtains an admin token and uses it for subsequent requests.
func (c *Client) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, loginRequest{Username: username, Password: password})
	if err != nil {
		return "", time.Time{}, err
	}
	var resp loginResponse
	if err := data(raw, &resp); err != nil {
		return "", time.Time{}, err
	}
	c.token = resp.Token
	return resp.Token, resp.ExpiresAt, nil
}

type catalogResponse struct {
	Strict   bool              `json:"strict"`
	Services []catalog.Service `json:"services"`
}

// Catalog fetches the service and course offerings.
func (c *Client) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/catalog", nil, nil)
	if err != nil {
		return nil, err
	}
	var resp catalogResponse
	if err := data(raw, &resp); err != nil {
		return nil, err
	}
	return catalog.New(resp.Strict, resp.Services), nil
}
