// Package sheets mirrors fleet maintenance state into the operations
// spreadsheet via its webhook script.
package sheets

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

// Client posts row updates keyed by registration to the sheet script.
type Client struct {
	config     config.SheetsConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new spreadsheet mirror client
func NewClient(cfg config.SheetsConfig, log *logger.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		logger: log.Named("sheets-client"),
	}
}

// Enabled reports whether a sheet URL is configured.
func (c *Client) Enabled() bool {
	return c.config.URL != ""
}

type rowUpdate struct {
	Reg   string `json:"reg"`
	Check string `json:"check"`
	RTS   string `json:"rts"`
}

// Update pushes one row: the check label the aircraft is down for and the
// formatted return-to-service timestamp. On release the check label is
// "Active" and rts is empty.
func (c *Client) Update(ctx context.Context, registration, checkLabel, returnToService string) error {
	payload, err := json.Marshal(rowUpdate{
		Reg:   registration,
		Check: checkLabel,
		RTS:   returnToService,
	})
	if err != nil {
		return fmt.Errorf("failed to encode row update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create sheet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sheet endpoint returned status %d", resp.StatusCode)
	}

	c.logger.Info("Sheet updated",
		logger.String("registration", registration),
		logger.String("check", checkLabel))

	return nil
}
