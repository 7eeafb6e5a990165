// internal/common/http/client.go
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"medsearch-service/internal/common/circuitbreaker"
)

const maxBodyBytes = 4 << 20

var (
	ErrTimeout = errors.New("upstream timeout")
	ErrDecode  = errors.New("upstream payload could not be decoded")
)

// StatusError is returned for any non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

type Client struct {
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	userAgent  string
}

type Option func(*Client)

// WithBreaker routes every request through b. Transport errors and 5xx
// responses count as breaker failures, 4xx do not.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "medsearch-service/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoWithContext sends req bound to ctx.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}

// Breaker returns the attached breaker, or nil.
func (c *Client) Breaker() *circuitbreaker.Breaker {
	return c.breaker
}

// GetJSON issues a GET to rawURL with params merged into its query string and
// decodes a 2xx JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var (
		body      []byte
		statusErr *StatusError
	)
	call := func() error {
		req, err := http.NewRequest(http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.DoWithContext(ctx, req)
		if err != nil {
			return classifyTransportError(ctx, err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return classifyTransportError(ctx, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr = &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
			if resp.StatusCode >= 500 {
				return statusErr
			}
		}
		return nil
	}

	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return err
	}
	if statusErr != nil {
		return statusErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// FailureReason maps an upstream error to a short label for logs and metrics.
func FailureReason(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, circuitbreaker.ErrOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.As(err, &statusErr):
		return "upstream_status"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "network"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
