package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"portmonitor/internal/metrics"
)

const (
	DefaultURL     = "http://localhost:3142/devices"
	DefaultTimeout = 5 * time.Second

	maxBodyBytes = 8 << 20
)

var (
	// ErrUnavailable covers transport errors, timeouts and non-2xx replies.
	ErrUnavailable = errors.New("provisioner unavailable")
	// ErrMalformedBody means the provisioner answered with something that is not JSON.
	ErrMalformedBody = errors.New("provisioner returned malformed json")
)

// Client fetches the device list from the provisioning service. It holds no
// per-request state and is safe for concurrent use.
type Client struct {
	log     zerolog.Logger
	url     string
	timeout time.Duration
	http    *http.Client
	metrics *metrics.Metrics
}

type Options struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func New(log zerolog.Logger, opts Options, m *metrics.Metrics) *Client {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		url = DefaultURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		log:     log,
		url:     url,
		timeout: timeout,
		http:    hc,
		metrics: m,
	}
}

func (c *Client) URL() string { return c.url }

// Fetch performs a single GET bounded by the configured timeout and returns
// the body untouched once it is known to be valid JSON. Failures are logged
// here; callers only need to branch on the error.
func (c *Client) Fetch(ctx context.Context) (json.RawMessage, error) {
	start := time.Now()
	body, err := c.fetch(ctx)
	c.metrics.ObserveUpstreamFetch(fetchResult(err), time.Since(start))
	if err != nil {
		c.log.Error().Err(err).Str("url", c.url).Dur("elapsed", time.Since(start)).Msg("fetch devices failed")
		return nil, err
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID(ctx))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer c.closeResponse(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedBody, maxBodyBytes)
	}
	if !json.Valid(body) {
		return nil, ErrMalformedBody
	}
	return json.RawMessage(body), nil
}

func (c *Client) closeResponse(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.log.Warn().Err(err).Msg("failed to close response body")
	}
}

func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func fetchResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedBody):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unavailable"
	}
}
