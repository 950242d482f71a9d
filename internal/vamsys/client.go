package vamsys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ecvirtual/fleetops/internal/config"
	"github.com/ecvirtual/fleetops/pkg/logger"
)

// tokenExpirySafetyMargin is how long before the real expiry the cached
// bearer token is considered stale, so a call never races the server-side
// expiration.
const tokenExpirySafetyMargin = 60 * time.Second

// Client calls the vAMSYS v3 operations API to toggle aircraft visibility
// in Phoenix. Bearer tokens come from a client-credentials exchange and
// are cached until shortly before expiry.
type Client struct {
	config     config.VamsysConfig
	httpClient *http.Client
	logger     *logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new vAMSYS API client
func NewClient(cfg config.VamsysConfig, log *logger.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		logger: log.Named("vamsys-client"),
	}
}

// Enabled reports whether API credentials are configured. Without them
// the visibility sink is skipped entirely.
func (c *Client) Enabled() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a valid bearer token, reusing the cached one when it has
// not reached the safety margin before expiry. On failure the cache stays
// empty so the next call re-attempts acquisition.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	payload, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.config.ClientID,
		"client_secret": c.config.ClientSecret,
		"scope":         "*",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}

	c.accessToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpirySafetyMargin)

	c.logger.Debug("Acquired vAMSYS access token",
		logger.Time("expires", c.tokenExpiry))

	return c.accessToken, nil
}

// SetAircraftVisibility hides or unhides an aircraft from public
// scheduling in Phoenix. hidden=true removes it from the booking surface.
func (c *Client) SetAircraftVisibility(ctx context.Context, fleetID, aircraftID string, hidden bool) error {
	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire access token: %w", err)
	}

	body, err := json.Marshal(map[string]bool{"hide_in_phoenix": hidden})
	if err != nil {
		return fmt.Errorf("failed to encode visibility payload: %w", err)
	}

	url := fmt.Sprintf("%s/operations/fleet/%s/aircraft/%s", c.config.APIBaseURL, fleetID, aircraftID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create visibility request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("visibility request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("visibility endpoint returned status %d", resp.StatusCode)
	}

	c.logger.Info("Aircraft visibility updated",
		logger.String("aircraft_id", aircraftID),
		logger.Bool("hidden", hidden))

	return nil
}
