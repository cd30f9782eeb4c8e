// Package httpretry provides an HTTP client with automatic retry logic,
// exponential backoff, and jitter. Field devices push readings over
// unreliable links, so transient failures are the norm rather than the
// exception.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/sensing-garden/backend/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with retry logic using exponential
// backoff and full jitter.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryClient creates a RetryClient around client. A nil client gets
// a default http.Client with a 30s timeout. maxRetries is the number of
// retry attempts after the initial request (default 3).
func NewRetryClient(client HTTPDoer, maxRetries int) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  1 * time.Second,
		maxDelay:   30 * time.Second,
	}
}

// Do executes the request, retrying on 429, 500, 502, 503, 504 and on
// transient network errors. Client errors (400, 401, 403, 404) and
// context cancellation are returned immediately. The final attempt's
// response comes back as-is so the caller can read the status and body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			if attempt == rc.maxRetries {
				break
			}
			// Network or timeout error, retry after backoff.
			if waitErr := rc.backoff(req, attempt+1, 0); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt == rc.maxRetries {
			return resp, nil
		}

		// Drain the body so the connection can be reused.
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)

		if waitErr := rc.backoff(req, attempt+1, retryAfter); waitErr != nil {
			return nil, waitErr
		}
	}

	return nil, lastErr
}

// backoff sleeps before retry number attempt, resetting the request body
// so it can be resent. A server-provided floor overrides shorter jitter.
func (rc *RetryClient) backoff(req *http.Request, attempt int, floor time.Duration) error {
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return fmt.Errorf("httpretry: failed to reset request body: %w", err)
		}
		req.Body = body
	}

	delay := rc.calculateDelay(attempt)
	if floor > delay && floor <= rc.maxDelay {
		delay = floor
	}
	logger.Debug("retrying request",
		"attempt", attempt,
		"max_retries", rc.maxRetries,
		"method", req.Method,
		"path", req.URL.Path,
		"delay", delay.String())

	timer := time.NewTimer(delay)
	select {
	case <-timer.C:
		return nil
	case <-req.Context().Done():
		timer.Stop()
		return req.Context().Err()
	}
}

// calculateDelay returns the backoff for the given retry attempt using
// full jitter: random(0, min(maxDelay, baseDelay * 2^(attempt-1))).
func (rc *RetryClient) calculateDelay(attempt int) time.Duration {
	expDelay := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if expDelay > float64(rc.maxDelay) {
		expDelay = float64(rc.maxDelay)
	}
	jittered := time.Duration(rand.Float64() * expDelay)

	// Keep a floor so consecutive attempts never busy-loop.
	if jittered < 100*time.Millisecond {
		jittered = 100 * time.Millisecond
	}
	return jittered
}

// parseRetryAfter reads a Retry-After header given in whole seconds.
// HTTP-date forms and garbage yield zero.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
