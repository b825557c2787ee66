package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config captures the runtime configuration for the stablecored daemon.
type Config struct {
	RPCAddress     string             `toml:"RPCAddress"`
	DataDir        string             `toml:"DataDir"`
	Environment    string             `toml:"Environment"`
	LogLevel       string             `toml:"LogLevel"`
	CustodyAddress string             `toml:"CustodyAddress"`
	StableAsset    string             `toml:"StableAsset"`
	Collateral     []CollateralConfig `toml:"collateral"`
}

// CollateralConfig describes one approved collateral asset and its price
// source. When FeedURL is empty the daemon installs a manual feed seeded with
// InitialPrice.
type CollateralConfig struct {
	Asset        string `toml:"Asset"`
	FeedURL      string `toml:"FeedURL"`
	FeedDecimals uint8  `toml:"FeedDecimals"`
	InitialPrice string `toml:"InitialPrice"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./stablecore-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "dev"
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	for i := range c.Collateral {
		if c.Collateral[i].FeedDecimals == 0 {
			c.Collateral[i].FeedDecimals = 8
		}
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:     "127.0.0.1:8645",
		DataDir:        "./stablecore-data",
		Environment:    "dev",
		LogLevel:       "info",
		CustodyAddress: "0x0000000000000000000000000000000000000100",
		StableAsset:    "0x0000000000000000000000000000000000000101",
		Collateral: []CollateralConfig{
			{
				Asset:        "0x0000000000000000000000000000000000000200",
				FeedDecimals: 8,
				InitialPrice: "200000000000",
			},
		},
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create %s: %w", path, err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: write defaults: %w", err)
	}
	return cfg, nil
}
