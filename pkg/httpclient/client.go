// Package httpclient provides the small HTTP surface used by fetchers, scrapers and publishers.
package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "khobor-digest/1.0 (+https://github.com/Adda-Baaj/khobor-digest)"

// Response is the subset of a response the callers inspect.
type Response interface {
	StatusCode() int
	Body() []byte
}

// Client issues HTTP requests with per-call headers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (Response, error)
}

type restyClient struct {
	rc *resty.Client
}

// NewRestyClient builds a Client backed by resty with the given timeout.
func NewRestyClient(timeout time.Duration) Client {
	return NewRestyClientWithAgent(timeout, "")
}

// NewRestyClientWithAgent is NewRestyClient with a default User-Agent header.
func NewRestyClientWithAgent(timeout time.Duration, userAgent string) Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &restyClient{rc: rc}
}

// Get performs a GET request.
func (c *restyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	return c.Do(ctx, "GET", url, headers, nil)
}

// Do performs a request with an optional body.
func (c *restyClient) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (Response, error) {
	req := c.rc.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
