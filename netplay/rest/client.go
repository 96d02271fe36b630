package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client provides REST access to the Stagefall bootstrap endpoints. These
// are consumed before the realtime channel is opened; a config fetch failure
// is fatal to startup, not to the connection state machine.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new REST client.
// baseURL should be the base URL of the API, e.g., "https://play.stagefall.gg/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the bearer token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// FetchConfig retrieves the static game configuration. It returns an error
// when the server reports success=false, so callers can treat any non-nil
// error as a failed bootstrap.
func (c *Client) FetchConfig(ctx context.Context) (GameConfig, error) {
	var resp configResponse
	if err := c.get(ctx, "/config", &resp, false); err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Error != "" {
			return nil, fmt.Errorf("config fetch rejected: %s", resp.Error)
		}
		return nil, fmt.Errorf("config fetch rejected")
	}
	return resp.Config, nil
}

// ListCharacters returns the playable character catalog.
func (c *Client) ListCharacters(ctx context.Context) ([]CharacterInfo, error) {
	var resp []CharacterInfo
	if err := c.get(ctx, "/characters", &resp, true); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListStages returns the stage catalog.
func (c *Client) ListStages(ctx context.Context) ([]StageInfo, error) {
	var resp []StageInfo
	if err := c.get(ctx, "/stages", &resp, true); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, dest any, requireAuth bool) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
