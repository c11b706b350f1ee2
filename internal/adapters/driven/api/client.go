package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.PlatformAPI = (*Client)(nil)

const (
	// BasePath is the prefix of every platform user endpoint.
	BasePath = "/api/platform_user"

	// DefaultRate is the proactive throttle in requests per second.
	DefaultRate = 10

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second
)

// Client is the HTTP implementation of driven.PlatformAPI.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses hc for requests. A cookie jar is added when hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		c.http = &clone
	}
}

// WithRateLimit sets the proactive throttle. A non-positive rps disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a platform client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRate), DefaultRate),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		// cookiejar.New only fails on a bad PublicSuffixList, and none is passed.
		jar, _ := cookiejar.New(nil)
		c.http.Jar = jar
	}
	return c
}

// call describes one request.
type call struct {
	method string
	path   string
	body   any
	// allow400 treats 400 responses as a successful answer.
	allow400 bool
}

// URL returns the endpoint URL for path on the vendor domain.
func (c *Client) URL(cfg domain.Config, path string) string {
	return cfg.Origin() + BasePath + path
}

// do sends the request and returns the raw response body. A 204 yields "{}".
func (c *Client) do(ctx context.Context, cfg domain.Config, r call) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	method := r.method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(cfg, r.path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	logger.Debug("%s %s", method, r.path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, r.path, err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if r.allow400 && resp.StatusCode == http.StatusBadRequest {
		ok = true
	}

	if resp.StatusCode == http.StatusNoContent {
		return json.RawMessage(`{}`), nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newAPIError(resp, err.Error(), "")
	}
	if err := checkBody(data); err != nil {
		if !ok {
			return nil, newAPIError(resp, statusText(resp), err.Error())
		}
		return nil, newAPIError(resp, err.Error(), "")
	}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && len(envelope.Error) > 0 && string(envelope.Error) != "null" {
		return nil, newAPIError(resp, errorText(envelope.Error), "")
	}

	if !ok {
		return nil, newAPIError(resp, statusText(resp), "")
	}
	return data, nil
}

// get decodes the field key of the response into out.
func (c *Client) get(ctx context.Context, cfg domain.Config, r call, key string, out any) error {
	data, err := c.do(ctx, cfg, r)
	if err != nil {
		return err
	}
	return field(data, key, out)
}

// checkBody rejects empty or non-JSON bodies.
func checkBody(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errors.New("no data in response")
	}
	if !json.Valid(trimmed) {
		return errors.New("invalid JSON in response")
	}
	return nil
}

// field decodes one top-level field of a JSON object into out.
func field(data json.RawMessage, key string, out any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return fmt.Errorf("decode response: missing %q", key)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func newAPIError(resp *http.Response, message, debug string) *domain.APIError {
	return &domain.APIError{
		StatusCode:   resp.StatusCode,
		StatusText:   statusText(resp),
		Message:      message,
		DebugMessage: debug,
	}
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
}

// errorText renders the "error" field, which is usually a string.
func errorText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
