//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/oshokin/receipt-scan/internal/config"
	"github.com/oshokin/receipt-scan/internal/domain/receipt"
	"github.com/oshokin/receipt-scan/internal/version"
)

const (
	// ReceiptsPath is the backend route creating receipts.
	ReceiptsPath = "/api/receipts"

	// HeaderIdempotencyKey carries the per-submission idempotency key.
	HeaderIdempotencyKey = "Idempotency-Key"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4 << 10
)

// Client creates receipts through the backend REST API.
type Client struct {
	// baseURL is the backend root, without path, query or fragment.
	baseURL *url.URL
	// http performs the requests.
	http *http.Client
	// token is sent as a bearer token when set.
	token string
	// limiter spaces out backend requests; nil disables limiting.
	limiter *rate.Limiter

	// callTimeout is the default timeout for individual calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithRateLimit caps requests per second with a burst of one.
// A non-positive limit disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil

			return
		}

		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

var (
	// errAddressRequired is returned when the backend URL is missing.
	errAddressRequired = errors.New("backend url must be provided")
	// errAddressInvalid is returned when the backend URL is not an absolute http(s) URL.
	errAddressInvalid = errors.New("backend url must be an absolute http or https url")
	// errQRCodeURLRequired is returned when the request has no fiscal URL.
	errQRCodeURLRequired = errors.New("qr code url must be provided")
)

// APIError is a non-2xx backend response.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Message is the backend's error message or the trimmed response body.
	Message string

	// cause is set when the request was rejected before it was sent.
	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid request: %v", e.cause)
	}

	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}

	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int {
	return e.Status
}

// Unwrap returns the local validation failure, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// badRequest reports a request the backend would reject as a 400, so callers
// never retry it.
func badRequest(cause error) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Message: cause.Error(),
		cause:   cause,
	}
}

// NewClient builds a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	client := &Client{
		baseURL:     base,
		http:        new(http.Client),
		limiter:     rate.NewLimiter(rate.Limit(config.DefaultRateLimit), 1),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// CreateReceipt asks the backend to resolve the fiscal URL and store the receipt.
// Non-2xx responses fail with *APIError; transport failures carry no status.
func (c *Client) CreateReceipt(ctx context.Context, req receipt.CreateRequest) (*receipt.Receipt, error) {
	if strings.TrimSpace(req.QRCodeURL) == "" {
		return nil, badRequest(errQRCodeURLRequired)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.limiter != nil {
		if err = c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	endpoint := c.baseURL.JoinPath(ReceiptsPath)

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	if req.IdempotencyKey != uuid.Nil {
		httpReq.Header.Set(HeaderIdempotencyKey, req.IdempotencyKey.String())
	}

	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, readAPIError(resp)
	}

	var created receipt.Receipt
	if err = json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &created, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// readAPIError builds an APIError from the response, preferring the JSON
// "message" or "error" field over the raw body.
func readAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		apiErr.Message = http.StatusText(resp.StatusCode)

		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	if json.Unmarshal(raw, &payload) == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}

	return apiErr
}

// parseBaseURL keeps only the scheme, host and path prefix of raw.
func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errAddressRequired
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errAddressInvalid, err)
	}

	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errAddressInvalid
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")

	return u, nil
}
