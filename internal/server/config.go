package server

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/pokerstyle/internal/store"
)

// Config represents the complete server configuration
type Config struct {
	Server    ServerSettings    `hcl:"server,block"`
	Store     StoreSettings     `hcl:"store,block"`
	Diagnosis DiagnosisSettings `hcl:"diagnosis,block"`
	Game      GameSettings      `hcl:"game,block"`
}

// fileConfig mirrors Config with every block optional.
type fileConfig struct {
	Server    *ServerSettings    `hcl:"server,block"`
	Store     *StoreSettings     `hcl:"store,block"`
	Diagnosis *DiagnosisSettings `hcl:"diagnosis,block"`
	Game      *GameSettings      `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address      string `hcl:"address,optional"`
	Port         int    `hcl:"port,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	PollInterval string `hcl:"poll_interval,optional"`
}

// StoreSettings selects the session store backend
type StoreSettings struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
}

// DiagnosisSettings configures the content generator
type DiagnosisSettings struct {
	Generator   string `hcl:"generator,optional"`
	Model       string `hcl:"model,optional"`
	APIKeyEnv   string `hcl:"api_key_env,optional"`
	Concurrency int    `hcl:"concurrency,optional"`
	Timeout     string `hcl:"timeout,optional"`
}

// GameSettings holds the tablet flow defaults
type GameSettings struct {
	TargetHands      int   `hcl:"target_hands,optional"`
	MinHands         int   `hcl:"min_hands_for_diagnosis,optional"`
	HandCountOptions []int `hcl:"hand_count_options,optional"`
}

const (
	GeneratorOffline = "offline"
	GeneratorOpenAI  = "openai"
)

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:      "localhost",
			Port:         8080,
			LogLevel:     "info",
			PollInterval: "2s",
		},
		Store: StoreSettings{
			Driver: store.DriverMemory,
			Path:   "sessions.db",
		},
		Diagnosis: DiagnosisSettings{
			Generator:   GeneratorOffline,
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Concurrency: 4,
			Timeout:     "60s",
		},
		Game: GameSettings{
			TargetHands:      10,
			MinHands:         3,
			HandCountOptions: []int{5, 10, 15, 20},
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields the
// defaults.
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
	if fc.Server != nil {
		mergeString(&config.Server.Address, fc.Server.Address)
		mergeInt(&config.Server.Port, fc.Server.Port)
		mergeString(&config.Server.LogLevel, fc.Server.LogLevel)
		mergeString(&config.Server.PollInterval, fc.Server.PollInterval)
	}
	if fc.Store != nil {
		mergeString(&config.Store.Driver, fc.Store.Driver)
		mergeString(&config.Store.Path, fc.Store.Path)
	}
	if fc.Diagnosis != nil {
		mergeString(&config.Diagnosis.Generator, fc.Diagnosis.Generator)
		mergeString(&config.Diagnosis.Model, fc.Diagnosis.Model)
		mergeString(&config.Diagnosis.APIKeyEnv, fc.Diagnosis.APIKeyEnv)
		mergeInt(&config.Diagnosis.Concurrency, fc.Diagnosis.Concurrency)
		mergeString(&config.Diagnosis.Timeout, fc.Diagnosis.Timeout)
	}
	if fc.Game != nil {
		mergeInt(&config.Game.TargetHands, fc.Game.TargetHands)
		mergeInt(&config.Game.MinHands, fc.Game.MinHands)
		if len(fc.Game.HandCountOptions) > 0 {
			config.Game.HandCountOptions = fc.Game.HandCountOptions
		}
	}

	return config, nil
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case store.DriverMemory:
	case store.DriverFile, store.DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store %s: path is required", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Diagnosis.Generator {
	case GeneratorOffline:
	case GeneratorOpenAI:
		if c.Diagnosis.APIKeyEnv == "" {
			return fmt.Errorf("diagnosis: api_key_env is required for the openai generator")
		}
	default:
		return fmt.Errorf("unknown diagnosis generator %q", c.Diagnosis.Generator)
	}
	if c.Diagnosis.Concurrency < 1 {
		return fmt.Errorf("diagnosis: concurrency must be positive")
	}
	if _, err := c.DiagnosisTimeout(); err != nil {
		return err
	}

	if c.Game.MinHands < 1 {
		return fmt.Errorf("game: min_hands_for_diagnosis must be positive")
	}
	if c.Game.TargetHands < c.Game.MinHands {
		return fmt.Errorf("game: target_hands (%d) is below min_hands_for_diagnosis (%d)", c.Game.TargetHands, c.Game.MinHands)
	}
	for _, n := range c.Game.HandCountOptions {
		if n < 1 {
			return fmt.Errorf("game: hand count option %d must be positive", n)
		}
	}
	if !slices.IsSorted(c.Game.HandCountOptions) {
		return fmt.Errorf("game: hand_count_options must be ascending")
	}

	return nil
}

// Address returns the full listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// PollInterval returns the websocket watch poll interval
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("server: invalid poll_interval %q: %w", c.Server.PollInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("server: poll_interval must be positive")
	}
	return d, nil
}

// DiagnosisTimeout returns the bound on a whole diagnosis run. Empty means none.
func (c *Config) DiagnosisTimeout() (time.Duration, error) {
	if c.Diagnosis.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Diagnosis.Timeout)
	if err != nil {
		return 0, fmt.Errorf("diagnosis: invalid timeout %q: %w", c.Diagnosis.Timeout, err)
	}
	return d, nil
}
