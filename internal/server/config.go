package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config holds the runtime knobs the game service and timer loops use.
type Config struct {
	// Per-game timer defaults in seconds; 0 disables the timer.
	TurnTimeout    int
	PickingTimeout int

	// Default match target when a create request omits it.
	DefaultTargetScore int

	// CPU pacing bounds. Zeroed in test mode so CPUs act instantly.
	CPUTurnDelayMin time.Duration
	CPUTurnDelayMax time.Duration
	CPUPickDelayMin time.Duration
	CPUPickDelayMax time.Duration

	// Sweep periods.
	CleanupInterval    time.Duration
	PickingSweepPeriod time.Duration
	TurnSweepPeriod    time.Duration

	TestMode bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TurnTimeout:        60,
		PickingTimeout:     45,
		DefaultTargetScore: 100,
		CPUTurnDelayMin:    5 * time.Second,
		CPUTurnDelayMax:    20 * time.Second,
		CPUPickDelayMin:    1500 * time.Millisecond,
		CPUPickDelayMax:    3 * time.Second,
		CleanupInterval:    time.Minute,
		PickingSweepPeriod: 5 * time.Second,
		TurnSweepPeriod:    time.Second,
	}
}

// ApplyTestMode zeroes the CPU pacing delays so deterministic tests run
// without waiting.
func (c *Config) ApplyTestMode() {
	c.TestMode = true
	c.CPUTurnDelayMin = 0
	c.CPUTurnDelayMax = 0
	c.CPUPickDelayMin = 0
	c.CPUPickDelayMax = 0
}

// TestModeFromEnv reports whether the TEST_MODE environment flag is set.
func TestModeFromEnv() bool {
	return os.Getenv("TEST_MODE") == "1"
}

// FileConfig is the HCL configuration file layout.
type FileConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains process-level configuration.
type ServerSettings struct {
	Address   string `hcl:"address,optional"`
	Port      int    `hcl:"port,optional"`
	LogLevel  string `hcl:"log_level,optional"`
	StaticDir string `hcl:"static_dir,optional"`
}

// GameSettings contains game-engine configuration.
type GameSettings struct {
	TurnTimeoutSeconds    int  `hcl:"turn_timeout_seconds,optional"`
	PickingTimeoutSeconds int  `hcl:"picking_timeout_seconds,optional"`
	DefaultTargetScore    int  `hcl:"default_target_score,optional"`
	CPUTurnDelayMinMs     int  `hcl:"cpu_turn_delay_min_ms,optional"`
	CPUTurnDelayMaxMs     int  `hcl:"cpu_turn_delay_max_ms,optional"`
	CPUPickDelayMinMs     int  `hcl:"cpu_pick_delay_min_ms,optional"`
	CPUPickDelayMaxMs     int  `hcl:"cpu_pick_delay_max_ms,optional"`
	TestMode              bool `hcl:"test_mode,optional"`
}

// DefaultFileConfig returns the defaults used when no config file exists.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Server: ServerSettings{
			Address:  "0.0.0.0",
			Port:     8000,
			LogLevel: "info",
		},
		Game: GameSettings{
			TurnTimeoutSeconds:    60,
			PickingTimeoutSeconds: 45,
			DefaultTargetScore:    100,
		},
	}
}

// LoadFileConfig loads HCL configuration, falling back to defaults when the
// file does not exist.
func LoadFileConfig(filename string) (*FileConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultFileConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg FileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Game.TurnTimeoutSeconds == 0 {
		cfg.Game.TurnTimeoutSeconds = 60
	}
	if cfg.Game.PickingTimeoutSeconds == 0 {
		cfg.Game.PickingTimeoutSeconds = 45
	}
	if cfg.Game.DefaultTargetScore == 0 {
		cfg.Game.DefaultTargetScore = 100
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *FileConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.TurnTimeoutSeconds < 0 {
		return fmt.Errorf("turn timeout must not be negative")
	}
	if c.Game.PickingTimeoutSeconds < 0 {
		return fmt.Errorf("picking timeout must not be negative")
	}
	if t := c.Game.DefaultTargetScore; t < 50 || t > 500 {
		return fmt.Errorf("default target score must be between 50 and 500, got %d", t)
	}
	return nil
}

// Runtime converts the file configuration into the service Config.
func (c *FileConfig) Runtime() Config {
	cfg := DefaultConfig()
	cfg.TurnTimeout = c.Game.TurnTimeoutSeconds
	cfg.PickingTimeout = c.Game.PickingTimeoutSeconds
	cfg.DefaultTargetScore = c.Game.DefaultTargetScore
	if c.Game.CPUTurnDelayMinMs > 0 {
		cfg.CPUTurnDelayMin = time.Duration(c.Game.CPUTurnDelayMinMs) * time.Millisecond
	}
	if c.Game.CPUTurnDelayMaxMs > 0 {
		cfg.CPUTurnDelayMax = time.Duration(c.Game.CPUTurnDelayMaxMs) * time.Millisecond
	}
	if c.Game.CPUPickDelayMinMs > 0 {
		cfg.CPUPickDelayMin = time.Duration(c.Game.CPUPickDelayMinMs) * time.Millisecond
	}
	if c.Game.CPUPickDelayMaxMs > 0 {
		cfg.CPUPickDelayMax = time.Duration(c.Game.CPUPickDelayMaxMs) * time.Millisecond
	}
	if c.Game.TestMode || TestModeFromEnv() {
		cfg.ApplyTestMode()
	}
	return cfg
}

// GetServerAddress returns the listen address.
func (c *FileConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
