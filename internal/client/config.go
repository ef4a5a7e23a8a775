package client

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the tablet's client configuration
type Config struct {
	Server ServerConnection `hcl:"server,block"`
	UI     UISettings       `hcl:"ui,block"`
}

type fileConfig struct {
	Server *ServerConnection `hcl:"server,block"`
	UI     *UISettings       `hcl:"ui,block"`
}

// ServerConnection contains server connection settings
type ServerConnection struct {
	URL            string `hcl:"url,optional"`
	RequestTimeout int    `hcl:"request_timeout,optional"`
	PollInterval   string `hcl:"poll_interval,optional"`
	Watch          bool   `hcl:"watch,optional"`
}

// UISettings contains user interface settings
type UISettings struct {
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
	NoColor  bool   `hcl:"no_color,optional"`
}

// DefaultConfig returns default client configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConnection{
			URL:            "http://localhost:8080",
			RequestTimeout: 120,
			PollInterval:   "2s",
		},
		UI: UISettings{
			LogLevel: "warn",
			LogFile:  "pokerstyle-tablet.log",
		},
	}
}

// LoadConfig loads client configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config := DefaultConfig()
	if s := fc.Server; s != nil {
		if s.URL != "" {
			config.Server.URL = s.URL
		}
		if s.RequestTimeout != 0 {
			config.Server.RequestTimeout = s.RequestTimeout
		}
		if s.PollInterval != "" {
			config.Server.PollInterval = s.PollInterval
		}
		config.Server.Watch = s.Watch
	}
	if ui := fc.UI; ui != nil {
		if ui.LogLevel != "" {
			config.UI.LogLevel = ui.LogLevel
		}
		if ui.LogFile != "" {
			config.UI.LogFile = ui.LogFile
		}
		config.UI.NoColor = ui.NoColor
	}
	return config, nil
}

// Validate validates the client configuration
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.UI.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.UI.LogLevel)
	}
	return nil
}

// PollInterval returns how often the tablet refreshes its snapshot
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid poll_interval %q: %w", c.Server.PollInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("poll_interval must be positive")
	}
	return d, nil
}

// RequestTimeout returns the per-request timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}
