package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server      ServerConfig      `toml:"server"`      // HTTP server settings
	Logging     LoggingConfig     `toml:"logging"`     // Application logging settings
	Storage     StorageConfig     `toml:"storage"`     // Data persistence settings
	Webhooks    WebhooksConfig    `toml:"webhooks"`    // Inbound vAMSYS webhook settings
	Maintenance MaintenanceConfig `toml:"maintenance"` // Check thresholds and grounding policy
	Vamsys      VamsysConfig      `toml:"vamsys"`      // vAMSYS API settings (visibility toggle)
	Sheets      SheetsConfig      `toml:"sheets"`      // Spreadsheet mirror settings
	Notify      NotifyConfig      `toml:"notify"`      // Monitoring channel settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // Primary HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	AdditionalPorts  []int  `toml:"additional_ports"`      // Additional HTTP ports to listen on (useful for multiple interfaces)
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"` // Path to the SQLite database file
}

// WebhooksConfig contains the shared secrets for inbound vAMSYS webhooks.
// Each route carries its own secret; an empty secret disables the route.
type WebhooksConfig struct {
	PirepSecret  string `toml:"pirep_secret"`  // Shared secret for the flight-report (PIREP) webhook
	RosterSecret string `toml:"roster_secret"` // Shared secret for the pilot roster webhook
}

// MaintenanceConfig contains check thresholds, grounding durations and the
// release sweep settings
type MaintenanceConfig struct {
	// Hour intervals at which each check tier becomes due
	CheckIntervalA float64 `toml:"check_interval_a"` // A-check interval in flight hours (default: 500)
	CheckIntervalB float64 `toml:"check_interval_b"` // B-check interval in flight hours (default: 1000)
	CheckIntervalC float64 `toml:"check_interval_c"` // C-check interval in flight hours (default: 4000)
	CheckIntervalD float64 `toml:"check_interval_d"` // D-check interval in flight hours (default: 20000)

	// Grounding duration per tier, in hours
	CheckDurationHoursA int `toml:"check_duration_hours_a"` // A-check downtime (default: 12)
	CheckDurationHoursB int `toml:"check_duration_hours_b"` // B-check downtime (default: 48)
	CheckDurationHoursC int `toml:"check_duration_hours_c"` // C-check downtime (default: 336)
	CheckDurationHoursD int `toml:"check_duration_hours_d"` // D-check downtime (default: 720)

	// Landing rate at or below which a landing is treated as hard (fpm,
	// more negative = harder)
	HardLandingRateFPM float64 `toml:"hard_landing_rate_fpm"` // Default: -600

	// Base gating: tiers listed here only ground when the triggering
	// flight arrived at the maintenance base; elsewhere the check stays
	// due until the aircraft next lands there
	BaseAirport    string   `toml:"base_airport"`     // ICAO of the designated maintenance base (empty disables gating)
	BaseGatedTiers []string `toml:"base_gated_tiers"` // Tiers gated on base arrival (default: ["C", "D"])

	SweepIntervalSecs int `toml:"sweep_interval_seconds"` // Release scheduler sweep interval (default: 60)
}

// VamsysConfig contains settings for the vAMSYS v3 API used to toggle
// aircraft visibility in Phoenix
type VamsysConfig struct {
	TokenURL              string `toml:"token_url"`               // OAuth token endpoint (client credentials grant)
	APIBaseURL            string `toml:"api_base_url"`            // Base URL for the v3 operations API
	ClientID              string `toml:"client_id"`               // OAuth client ID
	ClientSecret          string `toml:"client_secret"`           // OAuth client secret
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"` // HTTP timeout for API calls (default: 10)
}

// SheetsConfig contains settings for the spreadsheet mirror endpoint
type SheetsConfig struct {
	URL                   string `toml:"url"`                     // Webhook URL of the sheet script (empty disables the sink)
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"` // HTTP timeout (default: 10)
}

// NotifyConfig contains settings for the monitoring channel webhook
type NotifyConfig struct {
	WebhookURL            string `toml:"webhook_url"`             // Channel webhook URL (empty disables the sink)
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"` // HTTP timeout (default: 10)
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // Location in configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	portsSeen := make(map[int]bool)
	portsSeen[c.Server.Port] = true
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}

	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required")
	}

	if c.Webhooks.PirepSecret == "" {
		return fmt.Errorf("webhooks.pirep_secret is required")
	}

	// Maintenance defaults
	if c.Maintenance.CheckIntervalA <= 0 {
		c.Maintenance.CheckIntervalA = 500
	}
	if c.Maintenance.CheckIntervalB <= 0 {
		c.Maintenance.CheckIntervalB = 1000
	}
	if c.Maintenance.CheckIntervalC <= 0 {
		c.Maintenance.CheckIntervalC = 4000
	}
	if c.Maintenance.CheckIntervalD <= 0 {
		c.Maintenance.CheckIntervalD = 20000
	}
	if c.Maintenance.CheckDurationHoursA <= 0 {
		c.Maintenance.CheckDurationHoursA = 12
	}
	if c.Maintenance.CheckDurationHoursB <= 0 {
		c.Maintenance.CheckDurationHoursB = 48
	}
	if c.Maintenance.CheckDurationHoursC <= 0 {
		c.Maintenance.CheckDurationHoursC = 336
	}
	if c.Maintenance.CheckDurationHoursD <= 0 {
		c.Maintenance.CheckDurationHoursD = 720
	}
	if c.Maintenance.HardLandingRateFPM == 0 {
		c.Maintenance.HardLandingRateFPM = -600
	}
	if c.Maintenance.BaseGatedTiers == nil {
		c.Maintenance.BaseGatedTiers = []string{"C", "D"}
	}
	for _, tier := range c.Maintenance.BaseGatedTiers {
		switch strings.ToUpper(tier) {
		case "A", "B", "C", "D":
		default:
			return fmt.Errorf("invalid base_gated_tiers entry: %q (must be A, B, C or D)", tier)
		}
	}
	if c.Maintenance.SweepIntervalSecs <= 0 {
		c.Maintenance.SweepIntervalSecs = 60
	}

	// vAMSYS defaults; credentials are optional (the visibility sink is
	// skipped when they are not configured)
	if c.Vamsys.TokenURL == "" {
		c.Vamsys.TokenURL = "https://vamsys.io/oauth/token"
	}
	if c.Vamsys.APIBaseURL == "" {
		c.Vamsys.APIBaseURL = "https://vamsys.io/api/v3"
	}
	if c.Vamsys.RequestTimeoutSeconds <= 0 {
		c.Vamsys.RequestTimeoutSeconds = 10
	}
	if c.Sheets.RequestTimeoutSeconds <= 0 {
		c.Sheets.RequestTimeoutSeconds = 10
	}
	if c.Notify.RequestTimeoutSeconds <= 0 {
		c.Notify.RequestTimeoutSeconds = 10
	}

	return nil
}
