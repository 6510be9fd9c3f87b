// Package workclient sends workloads to a gpuprim server.
package workclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// Response is the server's success envelope. Result is left raw so callers
// can decode it into the result type of the workload they sent.
type Response struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

// Client sends workloads to a server at baseURL.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new Client. A nil client uses http.DefaultClient.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// SendRaw posts an already encoded workload body.
func (c *Client) SendRaw(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/workload", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Send encodes payload as a workload of the given type and posts it.
func (c *Client) Send(ctx context.Context, workloadType string, payload any) (*Response, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	body, err := json.Marshal(struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{workloadType, p})
	if err != nil {
		return nil, err
	}
	return c.SendRaw(ctx, body)
}

// Run sends a workload and decodes its result into result.
func (c *Client) Run(ctx context.Context, workloadType string, payload, result any) error {
	resp, err := c.Send(ctx, workloadType, payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp.Result, result)
}

// Health returns the server's health line.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return strings.TrimSpace(string(data)), nil
}
