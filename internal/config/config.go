// Package config provides configuration management for dnawallet.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/dnawallet/internal/chain"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Identity string         `yaml:"identity"`
	Network  NetworkConfig  `yaml:"network"`
	ETH      ETHConfig      `yaml:"eth"`
	RPC      RPCConfig      `yaml:"rpc"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NetworkConfig describes the cell network. Fees are decimal amounts of
// the native ticker.
type NetworkConfig struct {
	Name         string   `yaml:"name"`
	NetID        uint64   `yaml:"net_id"`
	RPC          string   `yaml:"rpc"`
	FallbackRPCs []string `yaml:"fallback_rpcs,omitempty"`
	FeeCollector string   `yaml:"fee_collector"`
	NetworkFee   string   `yaml:"network_fee"`
	ValidatorFee string   `yaml:"validator_fee"`
	NativeTicker string   `yaml:"native_ticker"`
	Decimals     int32    `yaml:"decimals"`
}

// ETHConfig defines Ethereum network settings. An empty RPC disables the chain.
type ETHConfig struct {
	RPC     string `yaml:"rpc"`
	ChainID int64  `yaml:"chain_id"`
}

// RPCConfig tunes the node client.
type RPCConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Burst          int     `yaml:"burst"`
}

// SecurityConfig defines security settings.
type SecurityConfig struct {
	MemoryLock bool `yaml:"memory_lock"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file over the defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{
			"path":   path,
			"reason": err.Error(),
		})
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to the defaults when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	var problems []string
	if c.Home == "" {
		problems = append(problems, "home is empty")
	}
	if c.Network.Name == "" {
		problems = append(problems, "network.name is empty")
	}
	if c.Network.RPC == "" {
		problems = append(problems, "network.rpc is empty")
	}
	for _, u := range append(c.Endpoints(), c.ETH.RPC) {
		if err := ValidateRPCURL(u); err != nil && !walleterr.Is(err, ErrInsecureRPCURL) {
			problems = append(problems, err.Error())
		}
	}
	if c.Identity == "" {
		problems = append(problems, "identity is empty")
	}
	if c.Network.Decimals < 0 || c.Network.Decimals > 77 {
		problems = append(problems, "network.decimals must be 0-77")
	}
	if _, err := c.NetworkFee(); err != nil {
		problems = append(problems, "network.network_fee: "+err.Error())
	}
	if fee, err := c.ValidatorFee(); err != nil {
		problems = append(problems, "network.validator_fee: "+err.Error())
	} else if fee.IsZero() {
		problems = append(problems, "network.validator_fee must be positive")
	}
	if c.RPC.TimeoutSeconds < 0 || c.RPC.Burst < 0 || c.RPC.RatePerSecond < 0 {
		problems = append(problems, "rpc limits must not be negative")
	}
	if len(problems) > 0 {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{
			"reason": strings.Join(problems, "; "),
		})
	}
	return nil
}

// NetworkFee returns the per-transaction network fee in base units.
func (c *Config) NetworkFee() (*uint256.Int, error) {
	return parseFee(c.Network.NetworkFee, c.Network.Decimals)
}

// ValidatorFee returns the default validator fee in base units.
func (c *Config) ValidatorFee() (*uint256.Int, error) {
	return parseFee(c.Network.ValidatorFee, c.Network.Decimals)
}

func parseFee(s string, decimals int32) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return new(uint256.Int), nil
	}
	return chain.ParseAmount(s, decimals)
}

// Endpoints returns the primary then fallback cell RPC endpoints.
func (c *Config) Endpoints() []string {
	out := []string{c.Network.RPC}
	for _, u := range c.Network.FallbackRPCs {
		if u != "" && u != c.Network.RPC {
			out = append(out, u)
		}
	}
	return out
}

// Timeout returns the RPC timeout.
func (c *Config) Timeout() time.Duration {
	if c.RPC.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RPC.TimeoutSeconds) * time.Second
}

// WalletRoot returns the directory that holds identity folders.
func (c *Config) WalletRoot() string {
	return ExpandHome(c.Home)
}

// JournalDir returns the transaction journal directory.
func (c *Config) JournalDir() string {
	return filepath.Join(ExpandHome(c.Home), "journal")
}

// CacheFile returns the balance cache file.
func (c *Config) CacheFile() string {
	return filepath.Join(ExpandHome(c.Home), "cache", "balances.json")
}

// InsecureEndpoints returns the configured endpoints that use plain http to a remote host.
func (c *Config) InsecureEndpoints() []string {
	var out []string
	for _, u := range append(c.Endpoints(), c.ETH.RPC) {
		if walleterr.Is(ValidateRPCURL(u), ErrInsecureRPCURL) {
			out = append(out, u)
		}
	}
	return out
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// DefaultHome returns the default dnawallet home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dnawallet"
	}
	return filepath.Join(home, ".dnawallet")
}

// String summarizes the config for debug logs, without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("config(home=%s network=%s rpc=%s eth=%t)",
		c.Home, c.Network.Name, c.Network.RPC, c.ETH.RPC != "")
}
