package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/constellation/pkg/buildinfo"
	"github.com/matzehuels/constellation/pkg/cache"
	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/observability"
)

// MatrixPath is the matrix endpoint relative to a server's base URL.
const MatrixPath = "/api/critical-terms/cooccurrence-matrix"

const (
	clientTimeout = 10 * time.Second
	maxMatrixBody = 32 << 20
)

// Client fetches matrices from a constellation server.
type Client struct {
	baseURL string
	http    *http.Client
	retry   cache.RetryPolicy
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithRetryPolicy replaces cache.DefaultRetryPolicy.
func WithRetryPolicy(p cache.RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = p }
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: clientTimeout},
		retry:   cache.DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the base URL; it keys the client's matrices in caches.
func (c *Client) Name() string { return c.baseURL }

// Matrix fetches the matrix for f. Network failures, 429 and 5xx responses are
// retried; every failure is reported with the NETWORK_ERROR code.
func (c *Client) Matrix(ctx context.Context, f matrix.Filter) (*matrix.Matrix, error) {
	if err := errors.ValidateURL(c.baseURL); err != nil {
		return nil, err
	}
	q := url.Values{}
	if f.FolderID != "" {
		q.Set("folder_id", f.FolderID)
	}
	if f.TermID != "" {
		q.Set("term_id", f.TermID)
	}
	target := c.baseURL + MatrixPath
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var m *matrix.Matrix
	err := cache.RetryWithPolicy(ctx, c.retry, func() error {
		var err error
		m, err = c.get(ctx, target)
		return err
	})
	if err != nil {
		if errors.GetCode(err) != "" {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "fetch matrix from %s", c.baseURL)
	}
	return m, nil
}

func (c *Client) get(ctx context.Context, target string) (*matrix.Matrix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	req.Header.Set(requestIDHeader, uuid.NewString())

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(err)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMatrixBody))
	if err != nil {
		return nil, cache.Retryable(err)
	}
	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	m, err := matrix.Unmarshal(body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "decode matrix")
	}
	return m, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "matrix endpoint not found")
	case code == http.StatusTooManyRequests, code >= 500:
		return cache.Retryable(fmt.Errorf("server returned status %d", code))
	default:
		return fmt.Errorf("server returned status %d", code)
	}
}
