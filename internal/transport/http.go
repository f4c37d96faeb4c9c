package transport

import (
	"context"
	"fmt"
	"strings"
	"time"
	"survival-tracker/internal/config"
	"survival-tracker/internal/constants"

	"github.com/valyala/fasthttp"
)

// HTTPClient serves the Transport interface over plain HTTP byte-range
// requests against a base URL.
type HTTPClient struct {
	baseURL string
	client  *fasthttp.Client
}

func NewHTTPClient(cfg *config.Config) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.RemoteBaseURL, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         constants.TransportTimeout,
			WriteTimeout:        constants.TransportTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *HTTPClient) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *HTTPClient) Stat(ctx context.Context, path string) (int64, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url(path))
	req.Header.SetMethod(fasthttp.MethodHead)

	if err := c.do(ctx, req, resp); err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
		length := resp.Header.ContentLength()
		if length < 0 {
			return 0, fmt.Errorf("stat %s: no content length", path)
		}
		return int64(length), nil
	case fasthttp.StatusNotFound:
		return 0, fmt.Errorf("stat %s: %w", path, ErrNotFound)
	default:
		return 0, fmt.Errorf("stat %s: unexpected status %d", path, resp.StatusCode())
	}
}

func (c *HTTPClient) FetchRange(ctx context.Context, path string, start, end int64) ([]byte, error) {
	if end <= start {
		return nil, nil
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url(path))
	req.Header.SetMethod(fasthttp.MethodGet)
	// Range is inclusive on both ends; the interface is half-open.
	req.Header.Set(fasthttp.HeaderRange, fmt.Sprintf("bytes=%d-%d", start, end-1))

	if err := c.do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("fetch %s [%d,%d): %w", path, start, end, err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusPartialContent:
		body := resp.Body()
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	case fasthttp.StatusOK:
		// The server ignored the Range header and sent the whole file;
		// slice out the requested window instead of replaying old bytes.
		body := resp.Body()
		if int64(len(body)) < end {
			return nil, fmt.Errorf("fetch %s [%d,%d): full response only %d bytes", path, start, end, len(body))
		}
		out := make([]byte, end-start)
		copy(out, body[start:end])
		return out, nil
	case fasthttp.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", path, ErrNotFound)
	default:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode())
	}
}

func (c *HTTPClient) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if deadline, ok := ctx.Deadline(); ok {
		return c.client.DoDeadline(req, resp, deadline)
	}
	return c.client.Do(req, resp)
}
