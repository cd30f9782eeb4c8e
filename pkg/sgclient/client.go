// Package sgclient is the Go client for the sensing garden API. It is
// the library device firmware, notebooks, and the seed tool talk through:
// one service per entity, explicit configuration, and a retrying
// transport suited to field deployments on flaky uplinks.
package sgclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sensing-garden/backend/internal/pkg/httpretry"
)

// HeaderAPIKey is the request header carrying the API key.
const HeaderAPIKey = "x-api-key"

// Config holds client configuration. BaseURL is required; everything
// else has a workable default.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.sensinggarden.example".
	BaseURL string
	// APIKey authenticates requests. Write operations fail client-side
	// without one; reads go out unauthenticated and succeed only against
	// servers running with auth disabled.
	APIKey string
	// MaxRetries bounds retry attempts after the initial request
	// (default 3).
	MaxRetries int
	// HTTPClient is the underlying transport, wrapped with retry logic.
	// nil gets an http.Client with a 30s timeout.
	HTTPClient httpretry.HTTPDoer
}

// Client is the sensing garden API client. Use the per-entity services
// for entity operations and Export for the unified CSV export.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer

	Detections      *DetectionsService
	Classifications *ClassificationsService
	Models          *ModelsService
	Videos          *VideosService
	Environment     *EnvironmentService
	Devices         *DevicesService
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("sgclient: BaseURL is required")
	}
	inner := cfg.HTTPClient
	if inner == nil {
		inner = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpretry.NewRetryClient(inner, cfg.MaxRetries),
	}
	c.Detections = &DetectionsService{service{client: c, base: "/detections"}}
	c.Classifications = &ClassificationsService{service{client: c, base: "/classifications"}}
	c.Models = &ModelsService{service{client: c, base: "/models", noDeviceFilter: true}}
	c.Videos = &VideosService{service{client: c, base: "/videos"}}
	c.Environment = &EnvironmentService{service{client: c, base: "/environment"}}
	c.Devices = &DevicesService{service{client: c, base: "/devices"}}
	return c, nil
}

// APIError is a non-2xx response from the API. Message carries the
// server's error text when the body was the standard {"error": ...}
// envelope, otherwise the raw body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sgclient: api error (status %d): %s", e.StatusCode, e.Message)
}

// Export runs the unified CSV export and returns the CSV bytes plus the
// server-assigned filename from Content-Disposition (empty when the
// server sent none, e.g. for an empty result set).
func (c *Client) Export(ctx context.Context, p ExportParams) ([]byte, string, error) {
	body, header, err := c.do(ctx, http.MethodGet, "/export", p.values(), nil)
	if err != nil {
		return nil, "", err
	}
	return body, attachmentFilename(header), nil
}

// do executes one API request and returns the response body and headers.
// Non-2xx statuses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, http.Header, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling request body: %w", err)
		}
		// bytes.Reader gives the request a GetBody, so retries can
		// resend the payload.
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}
	return respBody, resp.Header, nil
}

// getJSON runs a GET and unmarshals the response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, _, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// writeJSON runs a write-method request with a JSON body and unmarshals
// the response into out. Writes require an API key.
func (c *Client) writeJSON(ctx context.Context, method, path string, payload, out any) error {
	if c.apiKey == "" {
		return errors.New("sgclient: APIKey is required for write operations")
	}
	body, _, err := c.do(ctx, method, path, nil, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// errorMessage extracts the message from the standard error envelope,
// falling back to the raw body.
func errorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(body))
}

// attachmentFilename pulls the filename out of a Content-Disposition
// header. Missing or unparseable headers yield "".
func attachmentFilename(header http.Header) string {
	cd := header.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	return params["filename"]
}
