package horde

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const anonymousAPIKey = "0000000000"

// APIError is a structured error response from the remote service, decided at
// the client boundary so callers never inspect response shapes themselves.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("horde: %s (http %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("horde: http %d", e.StatusCode)
}

// IsRateLimited reports whether err is a remote 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	APIKey      string
	ClientAgent string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// Client talks to the Horde generation API. It covers only the three
// operations the controller needs: submit, lightweight check, full status.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	clientAgent string
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://aihorde.net/api/v2"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		key = anonymousAPIKey
	}
	return &Client{
		httpClient:  client,
		baseURL:     base,
		apiKey:      key,
		clientAgent: opts.ClientAgent,
	}
}

// Submit posts a new generation request and returns the remote acknowledgment.
func (c *Client) Submit(ctx context.Context, payload GenerateRequest) (*SubmitAck, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate/async", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	var ack SubmitAck
	if err := c.do(req, &ack); err != nil {
		return nil, err
	}
	if ack.ID == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "submission accepted without an id"}
	}
	return &ack, nil
}

// Check fetches the lightweight status of an in-flight request.
func (c *Client) Check(ctx context.Context, remoteID string) (*StatusCheck, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/generate/check/"+remoteID, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	var check StatusCheck
	if err := c.do(req, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// Status fetches the full status of a request, including its generations.
func (c *Client) Status(ctx context.Context, remoteID string) (*StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/generate/status/"+remoteID, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	var status StatusResult
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	if c.clientAgent != "" {
		req.Header.Set("Client-Agent", c.clientAgent)
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var remote struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&remote)
		return &APIError{StatusCode: resp.StatusCode, Message: remote.Message}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("horde: decode response: %w", err)
	}
	return nil
}
