// Package client is a Go client for the local eERC API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/encryptederc/eerc-client/api"
	"github.com/encryptederc/eerc-client/log"
)

const (
	// DefaultRetries is the number of attempts made when the connection
	// to the server fails.
	DefaultRetries = 3
	// DefaultTimeout is the timeout of a single HTTP request.
	DefaultTimeout = 10 * time.Second
	// DefaultRetryDelay is the wait before the first retry, doubled on every
	// further attempt.
	DefaultRetryDelay = 250 * time.Millisecond

	maxLoggedBody = 512
)

// Error is a non 200 response. Code is the api error code when the server
// sent one.
type Error struct {
	Status  int
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("api error %d (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// ErrorCode returns the api error code carried by err, or 0.
func ErrorCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// HTTPclient is the HTTP client of the local eERC API.
type HTTPclient struct {
	c          *http.Client
	host       *url.URL
	retries    int
	retryDelay time.Duration
}

// New returns a client for host, once the server answers the ping endpoint.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}
	c := &HTTPclient{
		c: &http.Client{
			Transport: &http.Transport{IdleConnTimeout: DefaultTimeout},
			Timeout:   DefaultTimeout,
		},
		host:       hostURL,
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
	}
	if err := c.Ping(context.Background()); err != nil {
		return nil, err
	}
	log.Debugw("api client ready", "host", hostURL.String())
	return c, nil
}

// Ping checks the server is up.
func (c *HTTPclient) Ping(ctx context.Context) error {
	data, status, err := c.Request(ctx, http.MethodGet, nil, api.PingEndpoint)
	if err != nil {
		return err
	}
	return responseError(status, data)
}

// SetRetries configures the number of attempts per request.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = max(n, 1)
}

// SetTimeout configures the timeout of a single HTTP request.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
}

// Request sends a request with an optional JSON body to the path built from
// urlPath and returns the raw response body and status. Connection errors
// are retried; responses, whatever their status, are not.
func (c *HTTPclient) Request(ctx context.Context, method string, jsonBody any, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		if body, err = json.Marshal(jsonBody); err != nil {
			return nil, 0, fmt.Errorf("cannot encode request body: %w", err)
		}
	}
	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	log.Debugw("api request", "method", method, "url", u.String(), "body", truncate(body))

	delay := c.retryDelay
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		data, status, err := c.do(ctx, method, u.String(), body)
		if err == nil {
			return data, status, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Warnw("api request failed", "url", u.String(), "attempt", attempt, "error", err.Error())
		if attempt == c.retries {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, 0, fmt.Errorf("%s %s failed: %w", method, u.Path, lastErr)
}

func (c *HTTPclient) do(ctx context.Context, method, target string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("cannot read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// responseError returns nil for a 200 response and an *Error otherwise.
func responseError(status int, data []byte) error {
	if status == http.StatusOK {
		return nil
	}
	apiErr := &Error{Status: status, Message: string(bytes.TrimSpace(data))}
	var coded struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}
	if json.Unmarshal(data, &coded) == nil && coded.Code != 0 {
		apiErr.Code, apiErr.Message = coded.Code, coded.Err
	}
	return apiErr
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}
