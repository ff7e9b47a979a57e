package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "stellarpay.yaml"

// Config represents the top-level stellarpay.yaml configuration.
type Config struct {
	Network NetworkConfig `yaml:"network"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Signer  SignerConfig  `yaml:"signer"`
	Log     LogConfig     `yaml:"log"`
}

// NetworkConfig identifies the ledger instance.
type NetworkConfig struct {
	HorizonURL  string `yaml:"horizon_url"`
	Passphrase  string `yaml:"passphrase"`
	ExplorerURL string `yaml:"explorer_url"`
}

// LedgerConfig tunes transaction building and Horizon access.
type LedgerConfig struct {
	BaseFee           int64   `yaml:"base_fee"` // stroops per operation
	HistoryLimit      int     `yaml:"history_limit"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// SignerConfig describes how to launch the external signer process.
type SignerConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	Env     []string `yaml:"env,omitempty"` // KEY=VALUE, appended to the inherited environment
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Load reads a stellarpay.yaml file from disk. Fields missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config pointing at the public testnet.
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			HorizonURL:  "https://horizon-testnet.stellar.org",
			Passphrase:  network.TestNetworkPassphrase,
			ExplorerURL: "https://stellar.expert/explorer/testnet",
		},
		Ledger: LedgerConfig{
			BaseFee:           txnbuild.MinBaseFee,
			HistoryLimit:      5,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Signer: SignerConfig{
			Command: "freighter-bridge",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the config for values the rest of the program cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Network.HorizonURL) == "" {
		problems = append(problems, "network.horizon_url is required")
	}
	switch c.Network.Passphrase {
	case "":
		problems = append(problems, "network.passphrase is required")
	case network.PublicNetworkPassphrase:
		problems = append(problems, "network.passphrase: mainnet is not supported")
	}
	if c.Ledger.BaseFee < txnbuild.MinBaseFee {
		problems = append(problems, fmt.Sprintf("ledger.base_fee must be at least %d", txnbuild.MinBaseFee))
	}
	if c.Ledger.HistoryLimit <= 0 || c.Ledger.HistoryLimit > 200 {
		problems = append(problems, "ledger.history_limit must be between 1 and 200")
	}
	if c.Ledger.RequestsPerSecond <= 0 || c.Ledger.Burst <= 0 {
		problems = append(problems, "ledger.requests_per_second and ledger.burst must be positive")
	}
	if strings.TrimSpace(c.Signer.Command) == "" {
		problems = append(problems, "signer.command is required")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}
