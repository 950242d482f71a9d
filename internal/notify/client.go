// Package notify posts human-readable summaries of fleet state changes
// to the operations monitoring channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ecvirtual/fleetops/internal/config"
	"github.com/ecvirtual/fleetops/pkg/logger"
)

// Client posts messages to a channel webhook.
type Client struct {
	config     config.NotifyConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new notification client
func NewClient(cfg config.NotifyConfig, log *logger.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		logger: log.Named("notify-client"),
	}
}

// Enabled reports whether a webhook URL is configured.
func (c *Client) Enabled() bool {
	return c.config.WebhookURL != ""
}

// Post sends one message to the monitoring channel.
func (c *Client) Post(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
