package moodle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
)

// Client fetches export payloads from a Moodle endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a new fetch client for the given endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
	}
}

// FetchPayload retrieves and decodes the export payload.
func (c *Client) FetchPayload(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domerrors.NewDownloadError(c.endpoint, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domerrors.NewDownloadError(c.endpoint, resp.StatusCode, fmt.Errorf("unexpected status"))
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return payload, nil
}
