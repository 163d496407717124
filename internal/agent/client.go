package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/intelvis/intelvis/pkg/models"
	"github.com/intelvis/intelvis/pkg/version"
)

// ErrNotProvisioned is returned by Ping when the server does not know the MAC.
var ErrNotProvisioned = errors.New("device not provisioned")

// ErrUnauthorized is returned when the server rejects the API key.
var ErrUnauthorized = errors.New("API key rejected")

// Client talks to the device-facing endpoints of the server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HealthCheck checks if the server is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

// Provision registers the MAC. created is true on 201, false when the server
// already knew the device.
func (c *Client) Provision(ctx context.Context, mac string) (deviceID string, created bool, err error) {
	resp, err := c.post(ctx, "/api/provision", models.ProvisionRequest{MAC: mac})
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
	case http.StatusUnauthorized:
		return "", false, ErrUnauthorized
	default:
		return "", false, statusError(resp)
	}

	var result models.ProvisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.DeviceID, resp.StatusCode == http.StatusCreated, nil
}

// Ping reports the device as alive.
func (c *Client) Ping(ctx context.Context, mac string) error {
	resp, err := c.post(ctx, "/api/devices/ping", models.PingRequest{MAC: mac})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotProvisioned
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return statusError(resp)
	}
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent("intelvis-agent"))
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
