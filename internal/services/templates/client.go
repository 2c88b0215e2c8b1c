// Package templates fetches per-user retrieval filter templates from an
// external template service. The service is optional; when it is not
// configured the chat pipeline runs without dynamic filters.
package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/campuschat/chat-service/internal/config"
)

// Client talks to the filter template service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a template service client. Returns nil when the service
// is not configured, which callers treat as "no dynamic filters".
func NewClient(cfg config.TemplatesConfig) *Client {
	if !cfg.Enabled() {
		return nil
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type templateResponse struct {
	Filter string `json:"filter"`
}

// FilterFor asks the service to generate the retrieval filter for a user.
// Failures are logged and swallowed: a missing filter degrades retrieval
// scope, it does not fail the chat request.
func (c *Client) FilterFor(ctx context.Context, userID string) string {
	filter, err := c.fetchFilter(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to fetch filter template")
		return ""
	}
	return filter
}

func (c *Client) fetchFilter(ctx context.Context, userID string) (string, error) {
	params := url.Values{}
	params.Set("action", "generate_template")
	params.Set("user_id", userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create template request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("template service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("template service returned status %d", resp.StatusCode)
	}

	var body templateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode template response: %w", err)
	}
	return body.Filter, nil
}
